package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/availability"
	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/shared/daterange"
)

func TestCalendar_BlockAndRelease(t *testing.T) {
	now := time.Date(2026, time.October, 18, 8, 0, 0, 0, time.UTC)
	cal := availability.NewCalendar("truck-1")

	require.NoError(t, cal.Block(daterange.Span{Start: oct(20), End: oct(22)}, "", "maint-1", now))
	assert.ErrorIs(t, cal.Block(daterange.Span{Start: oct(22), End: oct(24)}, availability.ReasonPrivate, "evt-1", now), availability.ErrOverlappingRange)
	assert.ErrorIs(t, cal.Block(daterange.SingleDay(oct(28)), availability.ReasonPrivate, "maint-1", now), availability.ErrReferenceTaken)

	require.Len(t, cal.Blocks, 1)
	assert.Equal(t, availability.ReasonHostBlock, cal.Blocks[0].Reason)
	assert.Len(t, cal.BlocksWithin(daterange.Span{Start: oct(1), End: oct(20)}), 1)
	assert.Empty(t, cal.BlocksWithin(daterange.Span{Start: oct(23), End: oct(31)}))

	require.NoError(t, cal.Release("maint-1", now))
	assert.ErrorIs(t, cal.Release("maint-1", now), availability.ErrRangeNotFound)
	assert.True(t, cal.Free(daterange.Span{Start: oct(20), End: oct(22)}))

	events := cal.PendingEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "calendar.blocked", events[0].EventName())
	assert.Equal(t, "calendar.released", events[1].EventName())
}

func TestBufferPolicy_DeriveBuffers(t *testing.T) {
	bookings := []booking.Existing{
		{Span: daterange.Span{Start: oct(10), End: oct(12)}, Status: booking.StatusApproved},
		{Span: daterange.Span{Start: oct(14), End: oct(15)}, Status: booking.StatusPending},
		{Span: daterange.Span{Start: oct(20), End: oct(21)}, Status: booking.StatusCancelled},
		{Span: daterange.SingleDay(oct(25)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 9, EndHour: 10}},
	}

	policy := availability.BufferPolicy{DaysBefore: 1, DaysAfter: 1}
	assert.Equal(t, []daterange.Date{oct(9), oct(13), oct(16)}, policy.DeriveBuffers(1, bookings))
	assert.Nil(t, policy.DeriveBuffers(3, bookings))
	assert.Nil(t, availability.BufferPolicy{}.DeriveBuffers(1, bookings))

	widened := policy.Widen(daterange.Span{Start: oct(10), End: oct(12)})
	assert.Equal(t, daterange.Span{Start: oct(9), End: oct(13)}, widened)
}
