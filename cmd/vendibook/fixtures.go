package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	listingapp "vendibook/internal/app/handlers/listings"
	"vendibook/internal/app/uow"
	"vendibook/internal/domain/listings"
)

type listingFixture struct {
	ID     string `json:"id"`
	Host   string `json:"host"`
	Active bool   `json:"active"`
	listingapp.ListingPayload
}

// loadListingFixtures imports listings from path. Listings that already exist
// are left untouched, so the import is safe to repeat on persistent drivers.
func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return 0, nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:                   listings.ListingID(fx.ID),
			Host:                 listings.HostID(fx.Host),
			Title:                fx.Title,
			Description:          fx.Description,
			Category:             fx.Category,
			Mode:                 fx.Mode,
			Address:              fx.Address,
			InstantBook:          fx.InstantBook,
			Photos:               fx.Photos,
			Inventory:            fx.Inventory,
			BusinessInfoRequired: fx.BusinessInfoRequired,
			Now:                  now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if fx.Active {
			if err := listing.Activate(now); err != nil {
				logger.Error("fixture activation failed", "listing_id", fx.ID, "error", err)
				continue
			}
		}
		listing.ClearEvents()
		err = saveFixture(ctx, factory, listing)
		switch {
		case errors.Is(err, listings.ErrConcurrentUpdate):
			logger.Debug("listing fixture already present", "listing_id", fx.ID)
		case err != nil:
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
		default:
			imported++
			logger.Info("listing fixture imported", "listing_id", listing.ID)
		}
	}
	return imported, nil
}

func saveFixture(ctx context.Context, factory uow.UoWFactory, listing *listings.Listing) error {
	unit, execCtx, err := uow.Begin(ctx, factory, uow.TxOptions{})
	if err != nil {
		return err
	}
	if err := unit.Listings().Save(execCtx, listing); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	return unit.Commit(execCtx)
}
