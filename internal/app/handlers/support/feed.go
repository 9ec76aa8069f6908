package support

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

// Feed is the data one resolver instance works against.
type Feed struct {
	Listing  *domainlistings.Listing
	Calendar *domainavailability.Calendar
	Snapshot domainavailability.Snapshot
}

// FeedLoader fetches the listing profile, the host calendar and the active
// reservations around a window.
type FeedLoader struct {
	Buffers domainavailability.BufferPolicy
}

func (l FeedLoader) Load(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID, window daterange.Span) (Feed, error) {
	if err := window.Validate(); err != nil {
		return Feed{}, err
	}
	var (
		listing  *domainlistings.Listing
		calendar *domainavailability.Calendar
		existing []domainbooking.Existing
	)
	// reservations are read over the widened window so buffers bleeding
	// into it are seen
	wide := l.Buffers.Widen(window)

	g, gctx := errgroup.WithContext(ctx)
	if !uow.ConcurrentReads(unit) {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		listing, err = unit.Listings().ByID(gctx, id)
		return err
	})
	g.Go(func() error {
		cal, err := unit.Calendars().Calendar(gctx, id)
		if errors.Is(err, domainavailability.ErrCalendarNotFound) {
			cal, err = domainavailability.NewCalendar(id), nil
		}
		calendar = cal
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = unit.Reservations().ActiveForListing(gctx, id, wide)
		return err
	})
	if err := g.Wait(); err != nil {
		return Feed{}, err
	}

	profile := listing.AvailabilityProfile()
	return Feed{
		Listing:  listing,
		Calendar: calendar,
		Snapshot: domainavailability.Snapshot{
			Profile:  profile,
			Blocks:   calendar.BlocksWithin(window),
			Bookings: existing,
			Buffers:  l.Buffers.DeriveBuffers(profile.TotalSlots, existing),
		},
	}, nil
}

// Resolver loads the feed and builds a resolver for today.
func (l FeedLoader) Resolver(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID, window daterange.Span, today daterange.Date) (*domainavailability.Resolver, Feed, error) {
	feed, err := l.Load(ctx, unit, id, window)
	if err != nil {
		return nil, Feed{}, err
	}
	resolver, err := domainavailability.NewResolver(feed.Snapshot, today)
	if err != nil {
		return nil, Feed{}, err
	}
	return resolver, feed, nil
}
