package payments_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/app/policies"
	"vendibook/internal/domain/shared/money"
	"vendibook/internal/infra/payments"
)

func TestOffline_Handoff(t *testing.T) {
	tests := []struct {
		name         string
		mode         policies.CaptureMode
		wantCaptured bool
		wantState    string
	}{
		{"instant book captures", policies.CaptureNow, true, "captured"},
		{"request to book holds", policies.CaptureHold, false, "held"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := payments.NewOffline()
			res, err := p.Handoff(context.Background(), policies.PaymentRequest{
				ReservationID: "res-1",
				Amount:        money.Dollars(100),
				Mode:          tt.mode,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, res.Reference)
			assert.Equal(t, tt.wantCaptured, res.Captured)
			assert.Equal(t, tt.wantState, p.State(res.Reference))
		})
	}
}

func TestOffline_IdempotencyKeyReplays(t *testing.T) {
	p := payments.NewOffline()
	req := policies.PaymentRequest{Amount: money.Dollars(50), Mode: policies.CaptureHold, IdempotencyKey: "submit-1"}

	first, err := p.Handoff(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Handoff(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOffline_DeclineAbove(t *testing.T) {
	p := payments.NewOffline()
	p.DeclineAbove = money.Dollars(100)

	_, err := p.Handoff(context.Background(), policies.PaymentRequest{Amount: money.Dollars(101), Mode: policies.CaptureNow})
	assert.ErrorIs(t, err, policies.ErrPaymentDeclined)
}

func TestOffline_CaptureAndRelease(t *testing.T) {
	ctx := context.Background()
	p := payments.NewOffline()
	held, err := p.Handoff(ctx, policies.PaymentRequest{Amount: money.Dollars(10), Mode: policies.CaptureHold})
	require.NoError(t, err)

	require.NoError(t, p.Capture(ctx, held.Reference))
	require.NoError(t, p.Capture(ctx, held.Reference), "capturing twice is a no-op")
	assert.Error(t, p.Release(ctx, held.Reference), "captured payment cannot be released")
	assert.ErrorIs(t, p.Capture(ctx, "missing"), payments.ErrUnknownReference)
}
