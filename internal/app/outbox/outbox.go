package outbox

import (
	"context"
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"

	"vendibook/internal/domain/shared/events"
)

// EventRecord is one domain event waiting for the relay.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stages records with the unit of work that produced them; Flush
// releases them once that unit has committed.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event as its payload and copies the request
// headers found in ctx (see WithHeaders).
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ctx context.Context, ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	headers := map[string]string{}
	maps.Copy(headers, headersFrom(ctx))
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    headers,
	}, nil
}

// Drain stages the pending events of each source, then clears them. A source
// keeps its events when staging fails so the caller may retry.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, sources ...events.Source) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, ev := range src.PendingEvents() {
			rec, err := encoder.Encode(ctx, ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return err
			}
		}
		src.ClearEvents()
	}
	return nil
}

type headersKey struct{}

// WithHeaders attaches metadata (request id, traceparent) that every event
// recorded under ctx carries to the broker. Blank values are skipped.
func WithHeaders(ctx context.Context, kv map[string]string) context.Context {
	merged := maps.Clone(headersFrom(ctx))
	if merged == nil {
		merged = map[string]string{}
	}
	for k, v := range kv {
		if v != "" {
			merged[k] = v
		}
	}
	return context.WithValue(ctx, headersKey{}, merged)
}

func headersFrom(ctx context.Context) map[string]string {
	h, _ := ctx.Value(headersKey{}).(map[string]string)
	return h
}
