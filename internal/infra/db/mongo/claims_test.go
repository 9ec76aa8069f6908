package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	domainbooking "vendibook/internal/domain/booking"
	"vendibook/internal/domain/hourly"
	"vendibook/internal/domain/shared/daterange"
)

func TestClaimKey(t *testing.T) {
	oct20 := daterange.NewDate(2026, time.October, 20)
	assert.Equal(t, "truck-1|2|2026-10-20|09", ClaimKey("truck-1", 2, oct20, 9))
}

func TestClaimDocuments(t *testing.T) {
	oct20 := daterange.NewDate(2026, time.October, 20)
	tests := []struct {
		name  string
		span  daterange.Span
		hours *hourly.Window
		count int
		first string
		last  string
	}{
		{
			name:  "full days claim every hour",
			span:  daterange.Span{Start: oct20, End: oct20.AddDays(1)},
			count: 48,
			first: "truck-1|1|2026-10-20|00",
			last:  "truck-1|1|2026-10-21|23",
		},
		{
			name:  "hourly claims only the window",
			span:  daterange.Span{Start: oct20, End: oct20},
			hours: &hourly.Window{StartHour: 9, EndHour: 12},
			count: 3,
			first: "truck-1|1|2026-10-20|09",
			last:  "truck-1|1|2026-10-20|11",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &domainbooking.Reservation{
				ID:         "res-1",
				ListingID:  "truck-1",
				SlotNumber: 1,
				Span:       tt.span,
				Hours:      tt.hours,
			}
			docs := claimDocuments(res)
			require.Len(t, docs, tt.count)
			assert.Equal(t, tt.first, docs[0].(claimDocument).ID)
			last := docs[len(docs)-1].(claimDocument)
			assert.Equal(t, tt.last, last.ID)
			assert.Equal(t, "res-1", last.ReservationID)
			assert.Equal(t, 1, last.Slot)
			assert.Equal(t, tt.span.End.Time(), last.Date)
		})
	}
}

func TestCrossSlotFilter(t *testing.T) {
	oct20 := daterange.NewDate(2026, time.October, 20)
	tests := []struct {
		name  string
		slot  int
		hours *hourly.Window
		want  bson.M
		first int
		last  int
	}{
		{
			name:  "tagged reservation looks for untagged claims",
			slot:  2,
			want:  bson.M{"$eq": 0},
			first: 0,
			last:  24,
		},
		{
			name:  "untagged reservation looks for any tagged claim",
			slot:  0,
			hours: &hourly.Window{StartHour: 9, EndHour: 12},
			want:  bson.M{"$ne": 0},
			first: 9,
			last:  12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &domainbooking.Reservation{
				ListingID:  "truck-1",
				SlotNumber: tt.slot,
				Span:       daterange.Span{Start: oct20, End: oct20.AddDays(1)},
				Hours:      tt.hours,
			}
			filter := crossSlotFilter(res)
			assert.Equal(t, "truck-1", filter["listing_id"])
			assert.Equal(t, tt.want, filter["slot"])
			assert.Equal(t, bson.M{"$gte": oct20.Time(), "$lte": oct20.AddDays(1).Time()}, filter["date"])
			assert.Equal(t, bson.M{"$gte": tt.first, "$lt": tt.last}, filter["hour"])
		})
	}
}

func TestReservationDocument_StoresDatesAsBSONDates(t *testing.T) {
	oct20 := daterange.NewDate(2026, time.October, 20)
	res := &domainbooking.Reservation{
		ID:        "res-1",
		ListingID: "truck-1",
		Span:      daterange.Span{Start: oct20, End: oct20.AddDays(2)},
	}
	doc := newReservationDocument(res)
	assert.Equal(t, time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), doc.Start)
	assert.Equal(t, time.Date(2026, time.October, 22, 0, 0, 0, 0, time.UTC), doc.End)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, bson.TypeDateTime, bson.Raw(raw).Lookup("start").Type)
	assert.Equal(t, bson.TypeDateTime, bson.Raw(raw).Lookup("end").Type)

	var decoded reservationDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	span, err := decoded.span()
	require.NoError(t, err)
	assert.Equal(t, res.Span, span)
}
