package listings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/listings"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

var now = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func baseParams() listings.CreateListingParams {
	return listings.CreateListingParams{
		ID:       "lot-1",
		Host:     "host-1",
		Title:    "  Riverside vendor lot ",
		Category: listings.CategoryVendorLot,
		Address:  listings.Address{Line1: "1 River Rd", City: "Austin", Country: "US"},
		Inventory: listings.InventoryParams{
			TotalSlots:   3,
			SlotNames:    []string{"Corner", " "},
			DailyEnabled: true,
			Rates:        pricing.RateCard{Daily: money.Dollars(80)},
		},
		Now: now,
	}
}

func TestNewListing_Defaults(t *testing.T) {
	l, err := listings.NewListing(baseParams())
	require.NoError(t, err)

	assert.Equal(t, "Riverside vendor lot", l.Title)
	assert.Equal(t, listings.ModeRent, l.Mode)
	assert.Equal(t, listings.ListingDraft, l.State)
	assert.True(t, l.BusinessInfoRequired)
	assert.Equal(t, []listings.FulfillmentMethod{listings.FulfillmentPickup}, l.Fulfillment)
	require.Len(t, l.PendingEvents(), 1)
	assert.Equal(t, "listing.created", l.PendingEvents()[0].EventName())
}

func TestNewListing_BusinessInfoOverride(t *testing.T) {
	params := baseParams()
	off := false
	params.BusinessInfoRequired = &off

	l, err := listings.NewListing(params)
	require.NoError(t, err)
	assert.False(t, l.BusinessInfoRequired)
}

func TestNewListing_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *listings.CreateListingParams)
		wantErr error
	}{
		{"missing title", func(p *listings.CreateListingParams) { p.Title = " " }, listings.ErrTitleRequired},
		{"bad category", func(p *listings.CreateListingParams) { p.Category = "boat" }, listings.ErrInvalidCategory},
		{"negative slots", func(p *listings.CreateListingParams) { p.Inventory.TotalSlots = -2 }, listings.ErrInvalidSlots},
		{"too many names", func(p *listings.CreateListingParams) {
			p.Inventory.SlotNames = []string{"a", "b", "c", "d"}
		}, listings.ErrTooManySlotNames},
		{"window order", func(p *listings.CreateListingParams) {
			p.Inventory.AvailableFrom = daterange.NewDate(2026, time.November, 2)
			p.Inventory.AvailableTo = daterange.NewDate(2026, time.November, 1)
		}, listings.ErrWindowOrder},
		{"no mode", func(p *listings.CreateListingParams) { p.Inventory.DailyEnabled = false }, listings.ErrNoBookingMode},
		{"hourly without rate", func(p *listings.CreateListingParams) { p.Inventory.HourlyEnabled = true }, listings.ErrMissingRate},
		{"duplicate document", func(p *listings.CreateListingParams) {
			p.Inventory.RequiredDocuments = []listings.RequiredDocument{{Type: "coi"}, {Type: "coi"}}
		}, listings.ErrDuplicateDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams()
			tt.mutate(&params)
			_, err := listings.NewListing(params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAvailabilityProfile(t *testing.T) {
	l, err := listings.NewListing(baseParams())
	require.NoError(t, err)

	profile := l.AvailabilityProfile()
	require.NoError(t, profile.Validate())
	assert.True(t, profile.MultiSlot())
	assert.Equal(t, "Corner", profile.SlotName(1))
	assert.Equal(t, "Space 2", profile.SlotName(2))
	assert.Equal(t, "Space 3", profile.SlotName(3))

	l.SlotNames[0] = "mutated"
	assert.Equal(t, "Corner", profile.SlotName(1))
}

func TestAvailabilityProfile_InWindow(t *testing.T) {
	profile := listings.AvailabilityProfile{
		TotalSlots:    1,
		AvailableFrom: daterange.NewDate(2026, time.November, 1),
	}
	assert.False(t, profile.InWindow(daterange.NewDate(2026, time.October, 31)))
	assert.True(t, profile.InWindow(daterange.NewDate(2027, time.March, 1)))

	profile.AvailableTo = daterange.NewDate(2026, time.November, 30)
	assert.False(t, profile.InWindow(daterange.NewDate(2026, time.December, 1)))
}

func TestListing_ActivateRequiresAddress(t *testing.T) {
	params := baseParams()
	params.Address = listings.Address{}
	l, err := listings.NewListing(params)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Activate(now), listings.ErrAddressRequired)

	l.Address = listings.Address{Line1: "1 Main", City: "Austin", Country: "US"}
	require.NoError(t, l.Activate(now))
	assert.True(t, l.Bookable())
	assert.NoError(t, l.Suspend(now, "maintenance"))
	assert.False(t, l.Bookable())
}
