package booking

import (
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/shared/daterange"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
)

// HoldsInventory reports whether a reservation in this status occupies its slot.
// Pending requests hold as strongly as approved ones.
func (s Status) HoldsInventory() bool {
	return s == StatusPending || s == StatusApproved
}

// ActiveStatuses lists the statuses that hold inventory.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusApproved}
}

// Existing is the read-only view of a reservation used by the availability resolvers.
type Existing struct {
	ID         ReservationID  `json:"id"`
	SlotNumber int            `json:"slot_number"`
	Span       daterange.Span `json:"span"`
	Status     Status         `json:"status"`
	Hours      *hourly.Window `json:"hours,omitempty"`
}

func (e Existing) IsHourly() bool {
	return e.Hours != nil
}

func (e Existing) Active() bool {
	return e.Status.HoldsInventory()
}

// Covers reports whether the reservation touches d at all.
func (e Existing) Covers(d daterange.Date) bool {
	return e.Span.Contains(d)
}

// FullDayOn reports whether the reservation takes the whole of d.
func (e Existing) FullDayOn(d daterange.Date) bool {
	return !e.IsHourly() && e.Covers(d)
}

// Conflicts reports whether two reservations compete for the same inventory.
// Slot 0 marks an untagged reservation made while the listing had one slot;
// it holds every slot, whatever the listing has since been resized to.
func Conflicts(a, b Existing) bool {
	if !a.Active() || !b.Active() || !SameSlot(a.SlotNumber, b.SlotNumber) {
		return false
	}
	return Overlap(a, b)
}

func SameSlot(a, b int) bool {
	return a == b || a == 0 || b == 0
}

// Overlap compares the time extents only: inclusive on dates, half-open on hours.
// A full-day reservation overlaps any hourly window on its dates.
func Overlap(a, b Existing) bool {
	if !a.Span.Overlaps(b.Span) {
		return false
	}
	if a.IsHourly() && b.IsHourly() {
		return a.Hours.Overlaps(*b.Hours)
	}
	return true
}
