package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"vendibook/internal/app/policies"
)

// Stripe hands reservations off as PaymentIntents. Instant bookings are
// captured automatically; request-to-book uses manual capture so the host's
// approval captures the hold.
type Stripe struct {
	api *client.API
	// PaymentMethod confirms the intent server-side when set (e.g. a saved
	// card or "pm_card_visa" in test mode). Without it the intent waits for
	// client-side confirmation.
	PaymentMethod string
}

func NewStripe(secretKey string) (*Stripe, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("payments: stripe secret key required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api}, nil
}

func (s *Stripe) Handoff(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	if !req.Amount.Positive() {
		return policies.PaymentResult{}, fmt.Errorf("payments: amount must be positive")
	}
	captureMethod := stripe.PaymentIntentCaptureMethodAutomatic
	if req.Mode == policies.CaptureHold {
		captureMethod = stripe.PaymentIntentCaptureMethodManual
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount.Amount),
		Currency:      stripe.String(strings.ToLower(req.Amount.Currency)),
		CaptureMethod: stripe.String(string(captureMethod)),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("reservation_id", req.ReservationID)
	params.AddMetadata("renter_id", req.RenterID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if s.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(s.PaymentMethod)
		params.Confirm = stripe.Bool(true)
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return policies.PaymentResult{}, translate(err)
	}
	return policies.PaymentResult{
		Reference: pi.ID,
		Captured:  pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

func (s *Stripe) Capture(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := s.api.PaymentIntents.Capture(reference, params)
	return translate(err)
}

func (s *Stripe) Release(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := s.api.PaymentIntents.Cancel(reference, params)
	return translate(err)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("%w: %s", policies.ErrPaymentDeclined, stripeErr.Msg)
	}
	return fmt.Errorf("payments: stripe: %w", err)
}

var _ policies.PaymentsPort = (*Stripe)(nil)
