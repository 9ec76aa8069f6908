package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

var now = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

func oct(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

func span(from, to int) daterange.Span { return daterange.Span{Start: oct(from), End: oct(to)} }

func window(start, end int) *hourly.Window { return &hourly.Window{StartHour: start, EndHour: end} }

func TestConflicts(t *testing.T) {
	tests := []struct {
		name string
		a, b booking.Existing
		want bool
	}{
		{
			name: "same slot overlapping dates",
			a:    booking.Existing{SlotNumber: 1, Span: span(5, 10), Status: booking.StatusApproved},
			b:    booking.Existing{SlotNumber: 1, Span: span(7, 9), Status: booking.StatusPending},
			want: true,
		},
		{
			name: "different slot",
			a:    booking.Existing{SlotNumber: 1, Span: span(5, 10), Status: booking.StatusApproved},
			b:    booking.Existing{SlotNumber: 2, Span: span(7, 9), Status: booking.StatusPending},
			want: false,
		},
		{
			name: "untagged holds every slot",
			a:    booking.Existing{SlotNumber: 0, Span: span(5, 10), Status: booking.StatusApproved},
			b:    booking.Existing{SlotNumber: 2, Span: span(7, 9), Status: booking.StatusPending},
			want: true,
		},
		{
			name: "touching end date overlaps",
			a:    booking.Existing{Span: span(5, 10), Status: booking.StatusApproved},
			b:    booking.Existing{Span: span(10, 12), Status: booking.StatusApproved},
			want: true,
		},
		{
			name: "cancelled never conflicts",
			a:    booking.Existing{Span: span(5, 10), Status: booking.StatusCancelled},
			b:    booking.Existing{Span: span(5, 10), Status: booking.StatusPending},
			want: false,
		},
		{
			name: "declined never conflicts",
			a:    booking.Existing{Span: span(5, 10), Status: booking.StatusApproved},
			b:    booking.Existing{Span: span(5, 10), Status: booking.StatusDeclined},
			want: false,
		},
		{
			name: "hourly back to back",
			a:    booking.Existing{Span: span(5, 5), Status: booking.StatusApproved, Hours: window(9, 12)},
			b:    booking.Existing{Span: span(5, 5), Status: booking.StatusApproved, Hours: window(12, 14)},
			want: false,
		},
		{
			name: "hourly overlap",
			a:    booking.Existing{Span: span(5, 5), Status: booking.StatusApproved, Hours: window(9, 12)},
			b:    booking.Existing{Span: span(5, 5), Status: booking.StatusPending, Hours: window(11, 14)},
			want: true,
		},
		{
			name: "hourly on other date",
			a:    booking.Existing{Span: span(5, 5), Status: booking.StatusApproved, Hours: window(9, 12)},
			b:    booking.Existing{Span: span(6, 6), Status: booking.StatusPending, Hours: window(9, 12)},
			want: false,
		},
		{
			name: "full day against hourly",
			a:    booking.Existing{Span: span(4, 6), Status: booking.StatusApproved},
			b:    booking.Existing{Span: span(5, 5), Status: booking.StatusPending, Hours: window(20, 22)},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, booking.Conflicts(tt.a, tt.b))
			assert.Equal(t, tt.want, booking.Conflicts(tt.b, tt.a))
		})
	}
}

func profile(slots int) listings.AvailabilityProfile {
	return listings.AvailabilityProfile{
		ListingID:   "truck-1",
		HostID:      "host-1",
		TotalSlots:  slots,
		InstantBook: false,
		Rates:       pricing.RateCard{Daily: money.Dollars(100)},
	}
}

func quote() pricing.Quote {
	return pricing.Quote{BasePrice: money.Dollars(100), TotalWithFees: money.Must(11290, "USD")}
}

func TestNewReservation(t *testing.T) {
	r, err := booking.NewReservation(booking.CreateParams{
		ID:         "res-1",
		Profile:    profile(3),
		RenterID:   "renter-1",
		SlotNumber: 2,
		Span:       span(20, 22),
		Quote:      quote(),
		CreatedAt:  now,
	})
	require.NoError(t, err)

	assert.Equal(t, booking.StatusPending, r.Status)
	assert.Equal(t, booking.PaymentNone, r.PaymentState)
	assert.Equal(t, 2, r.SlotNumber)
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "reservation.requested", r.PendingEvents()[0].EventName())
}

func TestNewReservation_SingleSlotIsUntagged(t *testing.T) {
	r, err := booking.NewReservation(booking.CreateParams{
		ID:         "res-1",
		Profile:    profile(1),
		RenterID:   "renter-1",
		SlotNumber: 1,
		Span:       span(20, 22),
		Quote:      quote(),
		CreatedAt:  now,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, r.SlotNumber)
}

func TestNewReservation_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		params  booking.CreateParams
		wantErr error
	}{
		{"no renter", booking.CreateParams{Profile: profile(1), Span: span(1, 2), Quote: quote()}, booking.ErrRenterRequired},
		{"slot out of range", booking.CreateParams{Profile: profile(2), RenterID: "r", SlotNumber: 3, Span: span(1, 2), Quote: quote()}, booking.ErrInvalidSlot},
		{"multi slot needs slot", booking.CreateParams{Profile: profile(2), RenterID: "r", Span: span(1, 2), Quote: quote()}, booking.ErrInvalidSlot},
		{"hourly across days", booking.CreateParams{Profile: profile(1), RenterID: "r", Span: span(1, 2), Hours: window(9, 11), Quote: quote()}, booking.ErrHourlySpan},
		{"zero quote", booking.CreateParams{Profile: profile(1), RenterID: "r", Span: span(1, 2)}, booking.ErrZeroQuote},
		{"bad span", booking.CreateParams{Profile: profile(1), RenterID: "r", Span: span(3, 2), Quote: quote()}, daterange.ErrInvalidSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := booking.NewReservation(tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReservation_Lifecycle(t *testing.T) {
	r, err := booking.NewReservation(booking.CreateParams{
		ID: "res-1", Profile: profile(1), RenterID: "renter-1", Span: span(20, 21), Quote: quote(), CreatedAt: now,
	})
	require.NoError(t, err)
	r.ClearEvents()

	r.MarkPaymentFailed("card_declined", now)
	assert.Equal(t, booking.StatusPending, r.Status)
	assert.True(t, r.NeedsPaymentRetry())
	assert.True(t, r.Existing().Active())

	require.NoError(t, r.AttachPayment("pi_123", booking.PaymentAuthorized, now))
	assert.False(t, r.NeedsPaymentRetry())
	require.NoError(t, r.Approve(now))
	assert.ErrorIs(t, r.Decline("late", now), booking.ErrInvalidState)
	require.NoError(t, r.Cancel("plans changed", now))
	assert.False(t, r.Existing().Active())
	assert.ErrorIs(t, r.Cancel("again", now), booking.ErrInvalidState)

	names := make([]string, 0)
	for _, ev := range r.PendingEvents() {
		names = append(names, ev.EventName())
	}
	assert.Equal(t, []string{
		"reservation.payment_failed",
		"reservation.payment_handed_off",
		"reservation.approved",
		"reservation.cancelled",
	}, names)
}

func TestReservation_AttachPaymentRequiresRef(t *testing.T) {
	r, err := booking.NewReservation(booking.CreateParams{
		ID: "res-1", Profile: profile(1), RenterID: "renter-1", Span: span(20, 21), Quote: quote(), CreatedAt: now,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, r.AttachPayment(" ", booking.PaymentCaptured, now), booking.ErrPaymentRefRequired)
}
