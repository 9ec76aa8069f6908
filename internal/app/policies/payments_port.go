package policies

import (
	"context"
	"errors"

	"vendibook/internal/domain/shared/money"
)

var ErrPaymentDeclined = errors.New("payments: payment declined")

// CaptureMode selects how the payment handoff treats the charge.
type CaptureMode string

const (
	// CaptureNow charges immediately (instant book).
	CaptureNow CaptureMode = "capture"
	// CaptureHold places an authorization hold the host's approval captures later.
	CaptureHold CaptureMode = "hold"
)

type PaymentRequest struct {
	ReservationID  string
	RenterID       string
	Amount         money.Money
	Mode           CaptureMode
	IdempotencyKey string
	Description    string
}

type PaymentResult struct {
	Reference string
	Captured  bool
}

type PaymentsPort interface {
	Handoff(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	Capture(ctx context.Context, reference string) error
	Release(ctx context.Context, reference string) error
}
