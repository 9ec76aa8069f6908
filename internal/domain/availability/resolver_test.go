package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/availability"
	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/slots"
)

var today = daterange.NewDate(2026, time.October, 18)

func oct(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

func singleSlot() listings.AvailabilityProfile {
	return listings.AvailabilityProfile{ListingID: "truck-1", TotalSlots: 1, DailyEnabled: true}
}

func TestResolveDayStatus_Precedence(t *testing.T) {
	profile := singleSlot()
	profile.AvailableFrom = oct(1)
	profile.AvailableTo = daterange.NewDate(2026, time.December, 31)

	snap := availability.Snapshot{
		Profile: profile,
		Blocks: []availability.BlockedInterval{
			{Span: daterange.Span{Start: oct(10), End: oct(30)}, Reason: availability.ReasonHostBlock, Reference: "b1"},
		},
		Bookings: []booking.Existing{
			{Span: daterange.Span{Start: oct(15), End: oct(22)}, Status: booking.StatusApproved},
			{Span: daterange.Span{Start: oct(26), End: oct(27)}, Status: booking.StatusCancelled},
		},
		Buffers: []daterange.Date{oct(23), oct(14)},
	}

	tests := []struct {
		name string
		date daterange.Date
		want availability.DayStatus
	}{
		{"past beats everything", oct(17), availability.StatusPast},
		{"past even when booked", oct(16), availability.StatusPast},
		{"booked beats buffer and block", oct(20), availability.StatusBooked},
		{"buffer beats block", oct(23), availability.StatusBuffer},
		{"blocked", oct(24), availability.StatusBlocked},
		{"cancelled does not hold", oct(26), availability.StatusBlocked},
		{"available", oct(31), availability.StatusAvailable},
		{"after window", daterange.NewDate(2027, time.January, 1), availability.StatusOutsideWindow},
		{"beyond horizon", daterange.NewDate(2027, time.October, 19), availability.StatusOutsideWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := availability.ResolveDayStatus(tt.date, snap, today)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDayStatus_TodayIsNotPast(t *testing.T) {
	got, err := availability.ResolveDayStatus(today, availability.Snapshot{Profile: singleSlot()}, today)
	require.NoError(t, err)
	assert.Equal(t, availability.StatusAvailable, got)
}

func TestResolveDayStatus_HorizonEdge(t *testing.T) {
	snap := availability.Snapshot{Profile: singleSlot()}
	edge := today.AddYears(1)

	got, err := availability.ResolveDayStatus(edge, snap, today)
	require.NoError(t, err)
	assert.Equal(t, availability.StatusAvailable, got)

	got, err = availability.ResolveDayStatus(edge.AddDays(1), snap, today)
	require.NoError(t, err)
	assert.Equal(t, availability.StatusOutsideWindow, got)
}

func TestResolver_Idempotent(t *testing.T) {
	snap := availability.Snapshot{
		Profile:  singleSlot(),
		Bookings: []booking.Existing{{Span: daterange.Span{Start: oct(20), End: oct(21)}, Status: booking.StatusPending}},
	}
	r, err := availability.NewResolver(snap, today)
	require.NoError(t, err)

	span := daterange.Span{Start: oct(18), End: oct(25)}
	first := r.ResolveSpan(span)
	second := r.ResolveSpan(span)
	assert.Equal(t, first, second)
	assert.Len(t, first, 8)
}

func TestResolver_MultiSlotAggregate(t *testing.T) {
	profile := singleSlot()
	profile.TotalSlots = 2
	snap := availability.Snapshot{
		Profile: profile,
		Bookings: []booking.Existing{
			{SlotNumber: 1, Span: daterange.Span{Start: oct(20), End: oct(22)}, Status: booking.StatusApproved},
			{SlotNumber: 2, Span: daterange.SingleDay(oct(22)), Status: booking.StatusPending},
		},
	}
	r, err := availability.NewResolver(snap, today)
	require.NoError(t, err)

	partial := r.ResolveDay(oct(21))
	assert.Equal(t, availability.StatusAvailable, partial.Status)
	assert.True(t, partial.Partial)
	assert.Equal(t, 1, partial.FreeSlots)

	full := r.ResolveDay(oct(22))
	assert.Equal(t, availability.StatusBooked, full.Status)
	assert.Equal(t, 0, full.FreeSlots)

	open := r.ResolveDay(oct(23))
	assert.Equal(t, availability.StatusAvailable, open.Status)
	assert.False(t, open.Partial)
	assert.Equal(t, 2, open.FreeSlots)

	assert.True(t, r.SpanSelectable(daterange.Span{Start: oct(19), End: oct(21)}))
	assert.False(t, r.SpanSelectable(daterange.Span{Start: oct(21), End: oct(23)}))

	got, err := r.SlotsFor(slots.Candidate{Span: daterange.Span{Start: oct(21), End: oct(21)}})
	require.NoError(t, err)
	assert.False(t, got[0].IsAvailable)
	assert.True(t, got[1].IsAvailable)
}

func TestResolver_HourlyBookingKeepsDayOpen(t *testing.T) {
	snap := availability.Snapshot{
		Profile: singleSlot(),
		Bookings: []booking.Existing{
			{Span: daterange.SingleDay(oct(20)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 9, EndHour: 11}},
		},
	}
	r, err := availability.NewResolver(snap, today)
	require.NoError(t, err)

	day := r.ResolveDay(oct(20))
	assert.Equal(t, availability.StatusAvailable, day.Status)
	assert.True(t, day.Partial)
}

func TestResolver_HourlyPlan(t *testing.T) {
	profile := singleSlot()
	profile.HourlyEnabled = true
	profile.Hourly = hourly.Settings{
		MinHours: 2,
		MaxHours: 6,
		Weekly:   map[time.Weekday][]hourly.Window{time.Monday: {{StartHour: 9, EndHour: 17}}},
	}
	monday := oct(19)
	snap := availability.Snapshot{
		Profile: profile,
		Blocks: []availability.BlockedInterval{
			{Span: daterange.SingleDay(oct(26)), Reference: "closed"},
		},
	}
	r, err := availability.NewResolver(snap, today)
	require.NoError(t, err)

	plan := r.HourlyPlan(monday, 0)
	assert.Equal(t, []int{9, 10, 11, 12, 13, 14, 15}, plan.StartTimes)
	assert.Equal(t, 2, plan.MaxDuration(15))

	assert.True(t, r.HourlyPlan(oct(26), 0).Empty(), "blocked day is never enterable")
	assert.True(t, r.HourlyPlan(oct(20), 0).Empty(), "no windows configured on tuesday")
}

func TestResolver_HourlyPlanMultiSlot(t *testing.T) {
	profile := singleSlot()
	profile.TotalSlots = 2
	profile.HourlyEnabled = true
	profile.Hourly = hourly.Settings{
		MinHours: 1,
		Weekly:   map[time.Weekday][]hourly.Window{time.Monday: {{StartHour: 9, EndHour: 13}}},
	}
	snap := availability.Snapshot{
		Profile: profile,
		Bookings: []booking.Existing{
			{SlotNumber: 1, Span: daterange.SingleDay(oct(19)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 9, EndHour: 11}},
			{SlotNumber: 2, Span: daterange.SingleDay(oct(19)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 10, EndHour: 12}},
		},
	}
	r, err := availability.NewResolver(snap, today)
	require.NoError(t, err)

	assert.Equal(t, []int{11, 12}, r.HourlyPlan(oct(19), 1).StartTimes)
	assert.Equal(t, []int{9, 12}, r.HourlyPlan(oct(19), 2).StartTimes)
	assert.Equal(t, []int{9, 11, 12}, r.HourlyPlan(oct(19), 0).StartTimes)
}

func TestResolver_HourlyPlanAnySlotNeverJoinsSlots(t *testing.T) {
	onMonday := func(minHours int, slot1, slot2 hourly.Window) *availability.Resolver {
		profile := singleSlot()
		profile.TotalSlots = 2
		profile.HourlyEnabled = true
		profile.Hourly = hourly.Settings{
			MinHours: minHours,
			Weekly:   map[time.Weekday][]hourly.Window{time.Monday: {{StartHour: 9, EndHour: 13}}},
		}
		snap := availability.Snapshot{
			Profile: profile,
			Bookings: []booking.Existing{
				{SlotNumber: 1, Span: daterange.SingleDay(oct(19)), Status: booking.StatusApproved, Hours: &slot1},
				{SlotNumber: 2, Span: daterange.SingleDay(oct(19)), Status: booking.StatusPending, Hours: &slot2},
			},
		}
		r, err := availability.NewResolver(snap, today)
		require.NoError(t, err)
		return r
	}

	t.Run("no slot holds the minimum", func(t *testing.T) {
		r := onMonday(3, hourly.Window{StartHour: 11, EndHour: 13}, hourly.Window{StartHour: 9, EndHour: 11})
		plan := r.HourlyPlan(oct(19), 0)
		assert.True(t, plan.Empty())
		assert.Empty(t, plan.DurationOptions(9))
		assert.False(t, plan.Fits(9, 3))
		assert.False(t, plan.Fits(10, 3))
	})

	t.Run("durations follow the slot that can host them", func(t *testing.T) {
		r := onMonday(1, hourly.Window{StartHour: 12, EndHour: 13}, hourly.Window{StartHour: 9, EndHour: 10})
		plan := r.HourlyPlan(oct(19), 0)
		assert.Equal(t, []int{9, 10, 11, 12}, plan.StartTimes)
		assert.Equal(t, 3, plan.MaxDuration(9))
		assert.Equal(t, []int{1, 2, 3}, plan.DurationOptions(9))
		assert.Equal(t, 3, plan.MaxDuration(10))
		assert.True(t, plan.Fits(10, 3))
		assert.False(t, plan.Fits(9, 4))
		assert.Equal(t, []hourly.Window{{StartHour: 9, EndHour: 12}, {StartHour: 10, EndHour: 13}}, plan.Windows)
	})
}

func TestNewResolver_RejectsMalformedProfile(t *testing.T) {
	_, err := availability.NewResolver(availability.Snapshot{Profile: listings.AvailabilityProfile{TotalSlots: 0}}, today)
	assert.ErrorIs(t, err, listings.ErrMalformedProfile)

	_, err = availability.NewResolver(availability.Snapshot{Profile: listings.AvailabilityProfile{TotalSlots: 1, SlotNames: []string{"a", "b"}}}, today)
	assert.ErrorIs(t, err, listings.ErrMalformedProfile)

	_, err = availability.NewResolver(availability.Snapshot{Profile: singleSlot()}, daterange.Date{})
	assert.ErrorIs(t, err, availability.ErrTodayRequired)
}
