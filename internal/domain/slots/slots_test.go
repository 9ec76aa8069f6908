package slots_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/slots"
)

func oct(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

func candidate(from, to int) slots.Candidate {
	return slots.Candidate{Span: daterange.Span{Start: oct(from), End: oct(to)}}
}

func TestIsSlotFree_Conflict(t *testing.T) {
	bookings := []booking.Existing{
		{ID: "b1", SlotNumber: 1, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusApproved},
	}

	assert.False(t, slots.IsSlotFree(1, candidate(7, 9), bookings))
	assert.True(t, slots.IsSlotFree(2, candidate(7, 9), bookings))
	assert.True(t, slots.IsSlotFree(1, candidate(11, 12), bookings))
	assert.False(t, slots.IsSlotFree(1, candidate(10, 12), bookings))
}

func TestIsSlotFree_PendingHoldsInventory(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 1, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusPending},
		{SlotNumber: 2, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusCancelled},
	}

	assert.False(t, slots.IsSlotFree(1, candidate(6, 6), bookings))
	assert.True(t, slots.IsSlotFree(2, candidate(6, 6), bookings))
}

func TestIsSlotFree_Hourly(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 1, Span: daterange.SingleDay(oct(5)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 10, EndHour: 13}},
	}

	morning := slots.Candidate{Span: daterange.SingleDay(oct(5)), Hours: &hourly.Window{StartHour: 8, EndHour: 10}}
	overlap := slots.Candidate{Span: daterange.SingleDay(oct(5)), Hours: &hourly.Window{StartHour: 12, EndHour: 14}}
	fullDay := slots.Candidate{Span: daterange.SingleDay(oct(5))}

	assert.True(t, slots.IsSlotFree(1, morning, bookings))
	assert.False(t, slots.IsSlotFree(1, overlap, bookings))
	assert.False(t, slots.IsSlotFree(1, fullDay, bookings))
}

func TestIsSlotFree_EmptyCandidateIsAdvisory(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 1, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusApproved},
	}
	assert.True(t, slots.IsSlotFree(1, slots.Candidate{}, bookings))
}

func TestAvailableSlots(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 1, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusApproved},
	}

	got, err := slots.AvailableSlots(2, []string{"Front row"}, candidate(7, 9), bookings)
	require.NoError(t, err)
	assert.Equal(t, []slots.Availability{
		{SlotNumber: 1, SlotName: "Front row", IsAvailable: false},
		{SlotNumber: 2, SlotName: "Space 2", IsAvailable: true},
	}, got)

	got, err = slots.AvailableSlots(2, nil, slots.Candidate{}, bookings)
	require.NoError(t, err)
	for _, s := range got {
		assert.True(t, s.IsAvailable)
	}
}

func TestAvailableSlots_SingleSlotCountsAnyReservation(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 0, Span: daterange.Span{Start: oct(5), End: oct(6)}, Status: booking.StatusApproved},
	}
	got, err := slots.AvailableSlots(1, nil, candidate(6, 8), bookings)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsAvailable)
}

func TestAvailableSlots_RejectsMalformed(t *testing.T) {
	_, err := slots.AvailableSlots(0, nil, slots.Candidate{}, nil)
	assert.ErrorIs(t, err, slots.ErrInvalidSlotCount)

	_, err = slots.AvailableSlots(-3, nil, slots.Candidate{}, nil)
	assert.ErrorIs(t, err, slots.ErrInvalidSlotCount)

	_, err = slots.AvailableSlots(1, []string{"a", "b"}, slots.Candidate{}, nil)
	assert.ErrorIs(t, err, slots.ErrTooManyNames)
}

func TestOccupancy(t *testing.T) {
	bookings := []booking.Existing{
		{SlotNumber: 1, Span: daterange.Span{Start: oct(5), End: oct(10)}, Status: booking.StatusApproved},
		{SlotNumber: 2, Span: daterange.Span{Start: oct(8), End: oct(8)}, Status: booking.StatusPending},
		{SlotNumber: 3, Span: daterange.SingleDay(oct(8)), Status: booking.StatusApproved, Hours: &hourly.Window{StartHour: 9, EndHour: 12}},
		{SlotNumber: 3, Span: daterange.SingleDay(oct(9)), Status: booking.StatusDeclined},
	}

	tests := []struct {
		name    string
		date    daterange.Date
		free    int
		partial bool
	}{
		{"all free", oct(1), 3, false},
		{"one taken", oct(6), 2, true},
		{"hourly not counted", oct(8), 1, true},
		{"declined ignored", oct(9), 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ, err := slots.Occupancy(3, tt.date, bookings)
			require.NoError(t, err)
			assert.Equal(t, tt.free, occ.Free)
			assert.Equal(t, 3, occ.Total)
			assert.Equal(t, tt.partial, occ.Partial())
		})
	}

	full, err := slots.Occupancy(1, oct(6), bookings[:1])
	require.NoError(t, err)
	assert.True(t, full.Full())
}
