package availability

import (
	"sort"

	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/shared/daterange"
)

// BufferPolicy derives turnaround days around full-day reservations of a
// single-slot listing. The zero policy derives nothing.
type BufferPolicy struct {
	DaysBefore int
	DaysAfter  int
}

func (p BufferPolicy) Enabled() bool {
	return p.DaysBefore > 0 || p.DaysAfter > 0
}

// DeriveBuffers returns the sorted, distinct buffer dates. Multi-slot listings
// never get buffers; hourly reservations do not produce them either.
func (p BufferPolicy) DeriveBuffers(totalSlots int, bookings []booking.Existing) []daterange.Date {
	if !p.Enabled() || totalSlots > 1 {
		return nil
	}
	seen := make(map[daterange.Date]struct{})
	for _, b := range bookings {
		if !b.Active() || b.IsHourly() || b.Span.Validate() != nil {
			continue
		}
		for i := 1; i <= p.DaysBefore; i++ {
			seen[b.Span.Start.AddDays(-i)] = struct{}{}
		}
		for i := 1; i <= p.DaysAfter; i++ {
			seen[b.Span.End.AddDays(i)] = struct{}{}
		}
	}
	out := make([]daterange.Date, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Widen returns the span a feed must cover so buffers at its edges are visible.
func (p BufferPolicy) Widen(window daterange.Span) daterange.Span {
	return daterange.Span{
		Start: window.Start.AddDays(-p.DaysAfter),
		End:   window.End.AddDays(p.DaysBefore),
	}
}
