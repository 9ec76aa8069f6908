package availability

import (
	"time"

	"vendibook/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	ListingID string         `json:"listing_id"`
	Span      daterange.Span `json:"span"`
	Reason    BlockReason    `json:"reason"`
	Reference string         `json:"reference"`
	At        time.Time      `json:"at"`
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.ListingID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	ListingID string         `json:"listing_id"`
	Span      daterange.Span `json:"span"`
	Reason    BlockReason    `json:"reason"`
	Reference string         `json:"reference"`
	At        time.Time      `json:"at"`
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.ListingID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }
