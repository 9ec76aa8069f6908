package listings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	listingapp "vendibook/internal/app/handlers/listings"
	"vendibook/internal/app/handlers/support"
	appoutbox "vendibook/internal/app/outbox"
	"vendibook/internal/app/uow"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
	domainpricing "vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
	"vendibook/internal/infra/storage/memory"
)

var now = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

func oct(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

func inventory(slots int) domainlistings.InventoryParams {
	return domainlistings.InventoryParams{
		TotalSlots:   slots,
		DailyEnabled: true,
		Rates:        domainpricing.RateCard{Daily: money.Dollars(100)},
		Fulfillment:  []domainlistings.FulfillmentMethod{domainlistings.FulfillmentPickup},
	}
}

func seedListing(t *testing.T, factory memory.Factory) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:        "truck-1",
		Host:      "host-1",
		Title:     "Taco truck",
		Category:  domainlistings.CategoryFoodTruck,
		Address:   domainlistings.Address{Line1: "1 Main St", City: "Austin", Country: "US"},
		Inventory: inventory(1),
		Now:       now,
	})
	require.NoError(t, err)
	require.NoError(t, factory.Listings.Save(context.Background(), listing))
	return listing
}

func book(t *testing.T, factory memory.Factory, listing *domainlistings.Listing, from, to int) *domainbooking.Reservation {
	t.Helper()
	res, err := domainbooking.NewReservation(domainbooking.CreateParams{
		ID:        "res-1",
		Profile:   listing.AvailabilityProfile(),
		RenterID:  "renter-1",
		Span:      daterange.Span{Start: oct(from), End: oct(to)},
		Quote:     domainpricing.Quote{BasePrice: money.Dollars(100), TotalWithFees: money.Must(11290, "USD")},
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, factory.Reservations.Create(context.Background(), res))
	return res
}

func updateInventory(t *testing.T, factory memory.Factory, params domainlistings.InventoryParams) error {
	t.Helper()
	handler := &listingapp.UpdateInventoryHandler{Host: listingapp.Host{
		Outbox:  memory.NewOutbox(),
		Encoder: appoutbox.JSONEventEncoder{},
		Clock:   support.Fixed(now),
	}}
	ctx := context.Background()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	_, err = handler.Handle(uow.ContextWithUnitOfWork(ctx, unit), listingapp.UpdateInventoryCommand{
		HostID:    "host-1",
		ListingID: "truck-1",
		Inventory: params,
	})
	if err != nil {
		require.NoError(t, unit.Rollback(ctx))
		return err
	}
	require.NoError(t, unit.Commit(ctx))
	return nil
}

func TestUpdateInventory_SlotCountChange(t *testing.T) {
	tests := []struct {
		name      string
		booked    bool
		cancelled bool
		from, to  int
		slots     int
		wantErr   error
	}{
		{name: "no reservations", slots: 2},
		{name: "upcoming reservation blocks resize", booked: true, from: 20, to: 22, slots: 2, wantErr: listingapp.ErrSlotsInUse},
		{name: "same slot count with reservation", booked: true, from: 20, to: 22, slots: 1},
		{name: "cancelled reservation frees resize", booked: true, cancelled: true, from: 20, to: 22, slots: 2},
		{name: "past reservation does not block", booked: true, from: 10, to: 12, slots: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := memory.NewFactory()
			listing := seedListing(t, factory)
			if tt.booked {
				res := book(t, factory, listing, tt.from, tt.to)
				if tt.cancelled {
					require.NoError(t, res.Cancel("plans changed", now))
					require.NoError(t, factory.Reservations.Save(context.Background(), res))
				}
			}

			err := updateInventory(t, factory, inventory(tt.slots))
			stored, loadErr := factory.Listings.ByID(context.Background(), "truck-1")
			require.NoError(t, loadErr)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, stored.TotalSlots)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.slots, stored.TotalSlots)
		})
	}
}
