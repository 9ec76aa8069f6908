package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/app/outbox"
	"vendibook/internal/domain/shared/events"
)

type requested struct {
	ID string    `json:"reservation_id"`
	At time.Time `json:"at"`
}

func (requested) EventName() string       { return "reservation.requested" }
func (e requested) AggregateID() string   { return e.ID }
func (e requested) OccurredAt() time.Time { return e.At }

type aggregate struct {
	events.EventRecorder
}

type box struct {
	records []outbox.EventRecord
	err     error
}

func (b *box) Add(_ context.Context, rec outbox.EventRecord) error {
	if b.err != nil {
		return b.err
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *box) Flush(context.Context) error { return nil }

func TestDrain_CarriesRequestHeaders(t *testing.T) {
	at := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	agg := &aggregate{}
	agg.Record(requested{ID: "res-1", At: at})

	ctx := outbox.WithHeaders(context.Background(), map[string]string{"request-id": "req-1", "traceparent": ""})
	ctx = outbox.WithHeaders(ctx, map[string]string{"traceparent": "00-abc-def-01"})

	b := &box{}
	enc := outbox.JSONEventEncoder{NewID: func() string { return "evt-1" }}
	require.NoError(t, outbox.Drain(ctx, b, enc, agg))

	require.Len(t, b.records, 1)
	rec := b.records[0]
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "reservation.requested", rec.Name)
	assert.Equal(t, "res-1", rec.Aggregate)
	assert.Equal(t, at, rec.OccurredAt)
	assert.JSONEq(t, `{"reservation_id":"res-1","at":"2026-10-18T09:00:00Z"}`, string(rec.Payload))
	assert.Equal(t, map[string]string{"request-id": "req-1", "traceparent": "00-abc-def-01"}, rec.Headers)
	assert.Empty(t, agg.PendingEvents())
}

func TestDrain_KeepsEventsOnFailure(t *testing.T) {
	agg := &aggregate{}
	agg.Record(requested{ID: "res-1"})

	b := &box{err: errors.New("boom")}
	assert.Error(t, outbox.Drain(context.Background(), b, nil, agg))
	assert.Len(t, agg.PendingEvents(), 1)
}
