package availability

import (
	"errors"

	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/slots"
)

var ErrTodayRequired = errors.New("availability: today is required")

// BookingHorizonYears bounds how far ahead any date can be booked.
const BookingHorizonYears = 1

type DayStatus string

const (
	StatusAvailable     DayStatus = "available"
	StatusBlocked       DayStatus = "blocked"
	StatusBooked        DayStatus = "booked"
	StatusBuffer        DayStatus = "buffer"
	StatusPast          DayStatus = "past"
	StatusOutsideWindow DayStatus = "outside_window"
)

func (s DayStatus) Selectable() bool {
	return s == StatusAvailable
}

// Snapshot is everything the resolver reads. Bookings and blocks only need to
// cover the dates being resolved.
type Snapshot struct {
	Profile  listings.AvailabilityProfile
	Blocks   []BlockedInterval
	Bookings []booking.Existing
	Buffers  []daterange.Date
}

// Day is the resolution of one date with its slot aggregate.
type Day struct {
	Date       daterange.Date `json:"date"`
	Status     DayStatus      `json:"status"`
	FreeSlots  int            `json:"free_slots"`
	TotalSlots int            `json:"total_slots"`
	Partial    bool           `json:"partial"`
}

// Resolver classifies dates against one snapshot. It holds no state beyond
// the snapshot and is safe for concurrent use.
type Resolver struct {
	snap    Snapshot
	today   daterange.Date
	buffers map[daterange.Date]struct{}
}

func NewResolver(snap Snapshot, today daterange.Date) (*Resolver, error) {
	if err := snap.Profile.Validate(); err != nil {
		return nil, err
	}
	if today.IsZero() {
		return nil, ErrTodayRequired
	}
	buffers := make(map[daterange.Date]struct{}, len(snap.Buffers))
	for _, d := range snap.Buffers {
		buffers[d] = struct{}{}
	}
	return &Resolver{snap: snap, today: today, buffers: buffers}, nil
}

// ResolveDayStatus is the one-shot form of Resolver.DayStatus.
func ResolveDayStatus(date daterange.Date, snap Snapshot, today daterange.Date) (DayStatus, error) {
	r, err := NewResolver(snap, today)
	if err != nil {
		return "", err
	}
	return r.DayStatus(date), nil
}

func (r *Resolver) Today() daterange.Date {
	return r.today
}

func (r *Resolver) Profile() listings.AvailabilityProfile {
	return r.snap.Profile
}

func (r *Resolver) DayStatus(date daterange.Date) DayStatus {
	return r.ResolveDay(date).Status
}

// ResolveDay applies the precedence past, horizon, window, booked, buffer,
// blocked, available. The first match wins.
func (r *Resolver) ResolveDay(date daterange.Date) Day {
	total := r.snap.Profile.TotalSlots
	day := Day{Date: date, TotalSlots: total}

	switch {
	case date.Before(r.today):
		day.Status = StatusPast
		return day
	case date.After(r.today.AddYears(BookingHorizonYears)):
		day.Status = StatusOutsideWindow
		return day
	case !r.snap.Profile.InWindow(date):
		day.Status = StatusOutsideWindow
		return day
	}

	occupancy, err := slots.Occupancy(total, date, r.snap.Bookings)
	if err != nil {
		// unreachable: NewResolver validated the slot count
		day.Status = StatusOutsideWindow
		return day
	}
	day.FreeSlots = occupancy.Free

	switch {
	case occupancy.Full():
		day.Status = StatusBooked
	case r.isBuffer(date):
		day.Status = StatusBuffer
	case r.isBlocked(date):
		day.Status = StatusBlocked
	default:
		day.Status = StatusAvailable
		day.Partial = occupancy.Partial() || r.hasHourlyOn(date)
	}
	if day.Status != StatusAvailable && day.Status != StatusBooked {
		day.FreeSlots = 0
	}
	return day
}

// ResolveSpan resolves every date of span in order.
func (r *Resolver) ResolveSpan(span daterange.Span) []Day {
	dates := span.Dates()
	out := make([]Day, 0, len(dates))
	for _, d := range dates {
		out = append(out, r.ResolveDay(d))
	}
	return out
}

// SpanSelectable reports whether every date of span is available.
func (r *Resolver) SpanSelectable(span daterange.Span) bool {
	if span.Validate() != nil {
		return false
	}
	for _, d := range span.Dates() {
		if !r.DayStatus(d).Selectable() {
			return false
		}
	}
	return true
}

// SlotsFor reports per-slot freedom for a candidate period.
func (r *Resolver) SlotsFor(candidate slots.Candidate) ([]slots.Availability, error) {
	return slots.AvailableSlots(r.snap.Profile.TotalSlots, r.snap.Profile.SlotNames, candidate, r.snap.Bookings)
}

// SlotFree reports whether slot is free for the candidate, honoring single-slot listings.
func (r *Resolver) SlotFree(slot int, candidate slots.Candidate) bool {
	return slots.IsFree(r.snap.Profile.TotalSlots, slot, candidate, r.snap.Bookings)
}

// HourlyPlan returns the bookable hours of date for slot. Slot 0 on a
// multi-slot listing offers what at least one slot can host. Days that do not
// resolve to available, and listings without hourly booking, yield an empty plan.
func (r *Resolver) HourlyPlan(date daterange.Date, slot int) hourly.Plan {
	settings := r.snap.Profile.Hourly
	minHours, maxHours := settings.Bounds()
	empty := hourly.Plan{Date: date, Windows: []hourly.Window{}, StartTimes: []int{}, MinHours: minHours, MaxHours: maxHours}
	if !r.snap.Profile.HourlyEnabled || !r.DayStatus(date).Selectable() {
		return empty
	}
	total := r.snap.Profile.TotalSlots
	if total == 1 || slot != 0 {
		return settings.PlanFor(date, r.bookedHours(date, slot))
	}
	perSlot := make([]hourly.Plan, 0, total)
	for n := 1; n <= total; n++ {
		perSlot = append(perSlot, settings.PlanFor(date, r.bookedHours(date, n)))
	}
	return hourly.Combine(date, minHours, maxHours, perSlot)
}

// bookedHours lists the hours of date taken on slot. A full-day reservation takes all of them.
func (r *Resolver) bookedHours(date daterange.Date, slot int) []hourly.Window {
	total := r.snap.Profile.TotalSlots
	out := make([]hourly.Window, 0)
	for _, b := range r.snap.Bookings {
		if !b.Active() || !b.Covers(date) {
			continue
		}
		if total > 1 && b.SlotNumber != 0 && b.SlotNumber != slot {
			continue
		}
		if !b.IsHourly() {
			return []hourly.Window{{StartHour: 0, EndHour: hourly.HoursPerDay}}
		}
		out = append(out, *b.Hours)
	}
	return out
}

func (r *Resolver) isBuffer(date daterange.Date) bool {
	_, ok := r.buffers[date]
	return ok
}

func (r *Resolver) isBlocked(date daterange.Date) bool {
	for _, block := range r.snap.Blocks {
		if block.Span.Contains(date) {
			return true
		}
	}
	return false
}

func (r *Resolver) hasHourlyOn(date daterange.Date) bool {
	for _, b := range r.snap.Bookings {
		if b.Active() && b.IsHourly() && b.Covers(date) {
			return true
		}
	}
	return false
}
