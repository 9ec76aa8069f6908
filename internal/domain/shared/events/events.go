// Package events lets aggregates collect domain events until the application
// layer moves them into the outbox.
package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Source exposes the events an aggregate has recorded and not yet handed off.
type Source interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

// EventRecorder is embedded by aggregates. The zero value is ready to use.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event != nil {
		r.pending = append(r.pending, event)
	}
}

// PendingEvents returns a copy; clearing the recorder does not affect it.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

var _ Source = (*EventRecorder)(nil)
