package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vendibook/internal/app/policies"
	"vendibook/internal/domain/shared/money"
)

var ErrUnknownReference = errors.New("payments: unknown payment reference")

type offlineState string

const (
	offlineHeld      offlineState = "held"
	offlineCaptured  offlineState = "captured"
	offlineCancelled offlineState = "cancelled"
)

// Offline records payments in memory. It backs local runs without a Stripe
// key and replays the same reference for a repeated idempotency key.
type Offline struct {
	// DeclineAbove declines handoffs for amounts greater than this, when set.
	DeclineAbove money.Money

	mu    sync.Mutex
	seq   int
	state map[string]offlineState
	keys  map[string]policies.PaymentResult
}

func NewOffline() *Offline {
	return &Offline{
		state: make(map[string]offlineState),
		keys:  make(map[string]policies.PaymentResult),
	}
}

func (o *Offline) Handoff(ctx context.Context, req policies.PaymentRequest) (policies.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return policies.PaymentResult{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if res, ok := o.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return res, nil
	}
	if o.DeclineAbove.Positive() && req.Amount.Amount > o.DeclineAbove.Amount {
		return policies.PaymentResult{}, policies.ErrPaymentDeclined
	}
	o.seq++
	ref := fmt.Sprintf("offline_%06d", o.seq)
	res := policies.PaymentResult{Reference: ref, Captured: req.Mode == policies.CaptureNow}
	if res.Captured {
		o.state[ref] = offlineCaptured
	} else {
		o.state[ref] = offlineHeld
	}
	if req.IdempotencyKey != "" {
		o.keys[req.IdempotencyKey] = res
	}
	return res, nil
}

func (o *Offline) Capture(ctx context.Context, reference string) error {
	return o.transition(reference, offlineHeld, offlineCaptured)
}

func (o *Offline) Release(ctx context.Context, reference string) error {
	return o.transition(reference, offlineHeld, offlineCancelled)
}

func (o *Offline) transition(reference string, from, to offlineState) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.state[reference]
	if !ok {
		return ErrUnknownReference
	}
	if current == to {
		return nil
	}
	if current != from {
		return fmt.Errorf("payments: %s payment cannot become %s", current, to)
	}
	o.state[reference] = to
	return nil
}

// State reports the recorded state of a reference; used by tests.
func (o *Offline) State(reference string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return string(o.state[reference])
}

var _ policies.PaymentsPort = (*Offline)(nil)
