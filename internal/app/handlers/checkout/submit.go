package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	apppricing "vendibook/internal/app/handlers/pricing"
	"vendibook/internal/app/middleware"
	"vendibook/internal/app/outbox"
	"vendibook/internal/app/policies"
	"vendibook/internal/app/uow"
	domainbooking "vendibook/internal/domain/booking"
	domaincheckout "vendibook/internal/domain/checkout"
	domainlistings "vendibook/internal/domain/listings"
)

const submitCheckoutKey = "checkout.submit"

type SubmitCheckoutCommand struct {
	SessionID       string `json:"session_id" validate:"required"`
	RenterID        string `json:"renter_id" validate:"required"`
	IdempotencyKeyV string `json:"-"`
}

func (c SubmitCheckoutCommand) Key() string              { return submitCheckoutKey }
func (c SubmitCheckoutCommand) Actor() string            { return c.RenterID }
func (c SubmitCheckoutCommand) ManagesTransaction() bool { return true }
func (c SubmitCheckoutCommand) IdempotencyKey() string   { return c.IdempotencyKeyV }
func (c SubmitCheckoutCommand) ResultPrototype() any     { return &dto.SubmitResult{} }

// SubmitCheckoutHandler turns a completed checkout into a reservation. The
// reservation is persisted in its own unit of work; documents and payment are
// handed off after the commit and run to completion even if the caller leaves.
type SubmitCheckoutHandler struct {
	Deps
	Payments  policies.PaymentsPort
	Documents policies.DocumentStager
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
	NewID     func() string
}

func (h *SubmitCheckoutHandler) Handle(ctx context.Context, cmd SubmitCheckoutCommand) (*dto.SubmitResult, error) {
	s, err := h.ownedSession(ctx, cmd.SessionID, cmd.RenterID)
	if err != nil {
		return nil, err
	}
	sel, err := s.FinalSelection()
	if err != nil {
		return nil, err
	}

	reservation, err := h.persist(ctx, s, sel)
	if errors.Is(err, domaincheckout.ErrAvailabilityConflict) {
		s.ReturnToSelection(h.Clock.Now())
		if putErr := h.Sessions.Put(context.WithoutCancel(ctx), s); putErr != nil {
			h.logger().WarnContext(ctx, "checkout session not reset after conflict", "session_id", s.ID, "error", putErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	handoffErr := h.handoff(detached, s, reservation)
	if err := h.Sessions.Delete(detached, s.ID); err != nil {
		h.logger().WarnContext(ctx, "checkout session not removed", "session_id", s.ID, "error", err)
	}
	result := &dto.SubmitResult{ReservationID: string(reservation.ID), Reservation: dto.MapReservation(reservation)}
	if handoffErr != nil {
		return result, handoffErr
	}
	h.logger().InfoContext(ctx, "reservation submitted",
		"reservation_id", reservation.ID,
		"listing_id", reservation.ListingID,
		"status", reservation.Status,
		"total", reservation.Quote.TotalWithFees.Format(),
	)
	return result, nil
}

// persist re-validates the selection against fresh data and stores the
// reservation. The repository has the final word on conflicts.
func (h *SubmitCheckoutHandler) persist(ctx context.Context, s *domaincheckout.Session, sel domaincheckout.Selection) (*domainbooking.Reservation, error) {
	unit, execCtx, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, &domaincheckout.RetryableError{Op: "begin", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	resolver, feed, err := h.Feeds.Resolver(execCtx, unit, s.ListingID(), sel.Span, h.Clock.Today())
	if err != nil {
		return nil, err
	}
	if !feed.Listing.Bookable() {
		return nil, ErrListingUnavailable
	}
	if err := checkSelection(resolver, sel); err != nil {
		var verr *domaincheckout.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %s", domaincheckout.ErrAvailabilityConflict, verr.Message)
		}
		return nil, err
	}
	check := func(candidate domaincheckout.Selection) bool {
		return resolver.SlotFree(candidate.SlotNumber, candidateOf(candidate))
	}
	if !s.ReadyToSubmit(check) {
		return nil, domaincheckout.ErrStepLocked
	}

	profile := feed.Snapshot.Profile
	hours := 0
	if sel.Hours != nil {
		hours = sel.Hours.Hours()
	}
	input, err := apppricing.QuoteInputFor(profile, sel.Span.Start, sel.Span.End, hours, s.Fulfillment.Method)
	if err != nil {
		return nil, err
	}
	quote, err := h.Calculator.Quote(input)
	if err != nil {
		return nil, err
	}
	if quote.IsZero() {
		return nil, &domaincheckout.ValidationError{Field: "selection", Message: "this selection has no price"}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var business *domainbooking.BusinessDetails
	if s.Business != nil {
		business = s.Business.Details()
	}
	reservation, err := domainbooking.NewReservation(domainbooking.CreateParams{
		ID:              domainbooking.ReservationID(h.newID()),
		Profile:         profile,
		RenterID:        s.RenterID,
		SlotNumber:      sel.SlotNumber,
		Span:            sel.Span,
		Hours:           sel.Hours,
		Fulfillment:     s.Fulfillment.Method,
		DeliveryAddress: deliveryAddress(s),
		Business:        business,
		Quote:           quote,
		CreatedAt:       h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Reservations().Create(execCtx, reservation); err != nil {
		if errors.Is(err, domainbooking.ErrSlotTaken) {
			return nil, fmt.Errorf("%w: %v", domaincheckout.ErrAvailabilityConflict, err)
		}
		return nil, &domaincheckout.RetryableError{Op: "persist", Err: err}
	}
	if err := outbox.Drain(execCtx, h.Outbox, h.Encoder, reservation); err != nil {
		return nil, &domaincheckout.RetryableError{Op: "persist", Err: err}
	}
	if err := unit.Commit(execCtx); err != nil {
		if errors.Is(err, domainbooking.ErrSlotTaken) {
			return nil, fmt.Errorf("%w: %v", domaincheckout.ErrAvailabilityConflict, err)
		}
		return nil, &domaincheckout.RetryableError{Op: "persist", Err: err}
	}
	committed = true
	return reservation, nil
}

// handoff moves staged documents under the reservation and hands the payment
// off. A failed payment leaves the reservation pending with payment failed.
func (h *SubmitCheckoutHandler) handoff(ctx context.Context, s *domaincheckout.Session, r *domainbooking.Reservation) error {
	now := h.Clock.Now()
	r.AttachDocuments(h.promoteDocuments(ctx, s, r), now)

	var handoffErr error
	switch {
	case h.Payments == nil:
		handoffErr = &domaincheckout.RetryableError{Op: "payment", ReservationID: r.ID, Err: errors.New("payments are not configured")}
		r.MarkPaymentFailed("payments are not configured", now)
	default:
		mode := policies.CaptureHold
		if r.InstantBook {
			mode = policies.CaptureNow
		}
		res, err := h.Payments.Handoff(ctx, policies.PaymentRequest{
			ReservationID:  string(r.ID),
			RenterID:       r.RenterID,
			Amount:         r.Quote.TotalWithFees,
			Mode:           mode,
			IdempotencyKey: "reservation-" + string(r.ID),
			Description:    fmt.Sprintf("%s, %s", s.Profile.Title, r.Quote.DurationLabel),
		})
		if err != nil {
			r.MarkPaymentFailed(err.Error(), now)
			handoffErr = &domaincheckout.RetryableError{Op: "payment", ReservationID: r.ID, Err: err}
			break
		}
		state := domainbooking.PaymentAuthorized
		if res.Captured {
			state = domainbooking.PaymentCaptured
		}
		if err := r.AttachPayment(res.Reference, state, now); err != nil {
			return &domaincheckout.RetryableError{Op: "payment", ReservationID: r.ID, Err: err}
		}
		if r.InstantBook {
			if err := r.Approve(now); err != nil {
				return err
			}
		}
	}

	if err := h.finalize(ctx, r); err != nil {
		h.logger().ErrorContext(ctx, "reservation handoff not saved", "reservation_id", r.ID, "error", err)
		if handoffErr == nil {
			handoffErr = &domaincheckout.RetryableError{Op: "finalize", ReservationID: r.ID, Err: err}
		}
	}
	return handoffErr
}

func (h *SubmitCheckoutHandler) promoteDocuments(ctx context.Context, s *domaincheckout.Session, r *domainbooking.Reservation) []domainbooking.Document {
	if h.Documents == nil || len(s.Documents) == 0 {
		return nil
	}
	docs := make([]domainbooking.Document, 0, len(s.Documents))
	for _, req := range s.Profile.RequiredDocuments {
		staged, ok := s.Documents[req.Type]
		if !ok {
			continue
		}
		key, err := h.Documents.Promote(ctx, staged.StagingKey, string(r.ID))
		if err != nil {
			// the upload stays in staging; the host can request it again
			h.logger().WarnContext(ctx, "document not moved to reservation",
				"reservation_id", r.ID, "doc_type", staged.Type, "error", err)
			continue
		}
		docs = append(docs, domainbooking.Document{
			Type:       staged.Type,
			ObjectKey:  key,
			FileName:   staged.FileName,
			UploadedAt: staged.UploadedAt,
		})
	}
	return docs
}

func (h *SubmitCheckoutHandler) finalize(ctx context.Context, r *domainbooking.Reservation) error {
	unit, execCtx, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := unit.Reservations().Save(execCtx, r); err != nil {
		return err
	}
	if err := outbox.Drain(execCtx, h.Outbox, h.Encoder, r); err != nil {
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (h *SubmitCheckoutHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func deliveryAddress(s *domaincheckout.Session) string {
	if s.Fulfillment.Method != domainlistings.FulfillmentDelivery {
		return ""
	}
	return s.Fulfillment.DeliveryAddress
}

var _ commands.Handler[SubmitCheckoutCommand, *dto.SubmitResult] = (*SubmitCheckoutHandler)(nil)
var _ middleware.IdempotentCommand = SubmitCheckoutCommand{}
