package slots

import (
	"errors"
	"fmt"

	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/shared/daterange"
)

var (
	ErrInvalidSlotCount = errors.New("slots: total slots must be at least 1")
	ErrTooManyNames     = errors.New("slots: more slot names than slots")
)

// Availability is the freedom of one slot for a candidate period.
type Availability struct {
	SlotNumber  int    `json:"slot_number"`
	SlotName    string `json:"slot_name"`
	IsAvailable bool   `json:"is_available"`
}

// Candidate is the period a renter wants. A zero candidate means no dates are chosen yet.
type Candidate struct {
	Span  daterange.Span
	Hours *hourly.Window
}

func (c Candidate) IsZero() bool {
	return c.Span.IsZero()
}

func (c Candidate) existing(slot int) booking.Existing {
	return booking.Existing{SlotNumber: slot, Span: c.Span, Status: booking.StatusPending, Hours: c.Hours}
}

// AvailableSlots reports every slot of the listing for the candidate. Without a
// candidate all slots read as available; that answer is advisory only.
func AvailableSlots(totalSlots int, slotNames []string, candidate Candidate, bookings []booking.Existing) ([]Availability, error) {
	if totalSlots < 1 {
		return nil, ErrInvalidSlotCount
	}
	if len(slotNames) > totalSlots {
		return nil, ErrTooManyNames
	}
	out := make([]Availability, 0, totalSlots)
	for n := 1; n <= totalSlots; n++ {
		free := candidate.IsZero() || isFree(totalSlots, n, candidate, bookings)
		out = append(out, Availability{SlotNumber: n, SlotName: Name(slotNames, n), IsAvailable: free})
	}
	return out, nil
}

// IsSlotFree reports whether slot is free for the candidate on a multi-slot listing.
func IsSlotFree(slot int, candidate Candidate, bookings []booking.Existing) bool {
	if candidate.IsZero() {
		return true
	}
	return isFree(0, slot, candidate, bookings)
}

// IsFree is IsSlotFree aware of the listing size: on a single-slot listing every
// active reservation competes, whatever its slot tag.
func IsFree(totalSlots, slot int, candidate Candidate, bookings []booking.Existing) bool {
	if candidate.IsZero() {
		return true
	}
	return isFree(totalSlots, slot, candidate, bookings)
}

func isFree(totalSlots, slot int, candidate Candidate, bookings []booking.Existing) bool {
	want := candidate.existing(slot)
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		if !occupies(totalSlots, b, slot) {
			continue
		}
		if booking.Overlap(want, b) {
			return false
		}
	}
	return true
}

// occupies decides whether b holds slot. Untagged reservations hold every slot.
func occupies(totalSlots int, b booking.Existing, slot int) bool {
	if totalSlots == 1 || b.SlotNumber == 0 {
		return true
	}
	return b.SlotNumber == slot
}

// Name returns the configured name of slot n, or "Space n".
func Name(names []string, n int) string {
	if n >= 1 && n <= len(names) && names[n-1] != "" {
		return names[n-1]
	}
	return fmt.Sprintf("Space %d", n)
}

// DayOccupancy aggregates slot usage of one date for calendar heatmaps.
type DayOccupancy struct {
	Date  daterange.Date `json:"date"`
	Free  int            `json:"free"`
	Total int            `json:"total"`
}

// Partial reports that some but not all slots are taken.
func (o DayOccupancy) Partial() bool {
	return o.Free > 0 && o.Free < o.Total
}

func (o DayOccupancy) Full() bool {
	return o.Free == 0
}

// Occupancy counts the slots still free for a full-day rental on date. Hourly
// reservations leave their slot bookable for other hours and are not counted.
func Occupancy(totalSlots int, date daterange.Date, bookings []booking.Existing) (DayOccupancy, error) {
	if totalSlots < 1 {
		return DayOccupancy{}, ErrInvalidSlotCount
	}
	taken := make(map[int]struct{}, totalSlots)
	for _, b := range bookings {
		if !b.Active() || !b.FullDayOn(date) {
			continue
		}
		if totalSlots == 1 || b.SlotNumber == 0 {
			return DayOccupancy{Date: date, Free: 0, Total: totalSlots}, nil
		}
		if b.SlotNumber >= 1 && b.SlotNumber <= totalSlots {
			taken[b.SlotNumber] = struct{}{}
		}
	}
	return DayOccupancy{Date: date, Free: totalSlots - len(taken), Total: totalSlots}, nil
}
