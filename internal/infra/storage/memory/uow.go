package memory

import (
	"context"
	"errors"
	"sync"

	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	Listings     *ListingRepository
	Calendars    *CalendarRepository
	Reservations *ReservationRepository
}

func NewFactory() Factory {
	return Factory{
		Listings:     NewListingRepository(),
		Calendars:    NewCalendarRepository(),
		Reservations: NewReservationRepository(),
	}
}

// Begin opens a unit. Writes reach the shared repositories immediately and are
// undone on rollback; there is no read isolation between units.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Listings == nil || f.Calendars == nil || f.Reservations == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f, readOnly: opts.ReadOnly}, nil
}

// Unit journals the writes it made so Rollback can restore the previous values.
type Unit struct {
	factory  Factory
	readOnly bool

	mu          sync.Mutex
	undo        []func()
	afterCommit []func()
	done        bool
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return unitListings{unit: u, repo: u.factory.Listings}
}

func (u *Unit) Calendars() domainavailability.Repository {
	return unitCalendars{unit: u, repo: u.factory.Calendars}
}

func (u *Unit) Reservations() domainbooking.Repository {
	return unitReservations{unit: u, repo: u.factory.Reservations}
}

func (u *Unit) ConcurrentReads() bool {
	return true
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	u.done = true
	hooks := u.afterCommit
	u.undo, u.afterCommit = nil, nil
	u.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Rollback reverts the journal newest first. It is a no-op after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo, u.afterCommit = nil, nil
	return nil
}

func (u *Unit) write(apply func() (undo func(), err error)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return uow.ErrReadOnly
	}
	undo, err := apply()
	if err != nil {
		return err
	}
	u.undo = append(u.undo, undo)
	return nil
}

// onCommit defers fn until the unit commits; it is dropped on rollback.
func (u *Unit) onCommit(fn func()) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return false
	}
	u.afterCommit = append(u.afterCommit, fn)
	return true
}

type unitListings struct {
	unit *Unit
	repo *ListingRepository
}

func (r unitListings) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return r.repo.ByID(ctx, id)
}

func (r unitListings) Save(ctx context.Context, listing *domainlistings.Listing) error {
	return r.unit.write(func() (func(), error) {
		prev, err := r.repo.save(listing)
		if err != nil {
			return nil, err
		}
		id := listing.ID
		return func() { r.repo.restore(id, prev) }, nil
	})
}

type unitCalendars struct {
	unit *Unit
	repo *CalendarRepository
}

func (r unitCalendars) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	return r.repo.Calendar(ctx, id)
}

func (r unitCalendars) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	return r.unit.write(func() (func(), error) {
		prev, err := r.repo.save(calendar)
		if err != nil {
			return nil, err
		}
		id := calendar.ListingID
		return func() { r.repo.restore(id, prev) }, nil
	})
}

type unitReservations struct {
	unit *Unit
	repo *ReservationRepository
}

func (r unitReservations) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	return r.repo.ByID(ctx, id)
}

func (r unitReservations) Create(ctx context.Context, res *domainbooking.Reservation) error {
	return r.unit.write(func() (func(), error) {
		if err := r.repo.Create(ctx, res); err != nil {
			return nil, err
		}
		id := res.ID
		return func() { r.repo.restore(id, nil) }, nil
	})
}

func (r unitReservations) Save(ctx context.Context, res *domainbooking.Reservation) error {
	return r.unit.write(func() (func(), error) {
		prev, err := r.repo.save(res)
		if err != nil {
			return nil, err
		}
		id := res.ID
		return func() { r.repo.restore(id, prev) }, nil
	})
}

func (r unitReservations) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.Span) ([]domainbooking.Existing, error) {
	return r.repo.ActiveForListing(ctx, listingID, window)
}

func (r unitReservations) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Reservation, error) {
	return r.repo.ListByRenter(ctx, renterID)
}

var (
	_ uow.UoWFactory       = Factory{}
	_ uow.UnitOfWork       = (*Unit)(nil)
	_ uow.ConcurrentReader = (*Unit)(nil)
)
