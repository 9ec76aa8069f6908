package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	Listings     *ListingRepository
	Calendars    *CalendarRepository
	Reservations *ReservationRepository
}

func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:           db,
		Listings:     NewListingRepository(db),
		Calendars:    NewCalendarRepository(db),
		Reservations: NewReservationRepository(db),
	}
}

// Begin starts a session with a snapshot transaction. Read-only units skip the
// session entirely.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	unit := &Unit{listings: f.Listings, calendars: f.Calendars, reservations: f.Reservations}
	if opts.ReadOnly {
		return unit, nil
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	unit.session = session
	return unit, nil
}

type Unit struct {
	session mongo.Session

	listings     *ListingRepository
	calendars    *CalendarRepository
	reservations *ReservationRepository
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return u.listings
}

func (u *Unit) Calendars() domainavailability.Repository {
	return u.calendars
}

func (u *Unit) Reservations() domainbooking.Repository {
	return u.reservations
}

// ConcurrentReads is false inside a transaction: a session must not be used
// from several goroutines.
func (u *Unit) ConcurrentReads() bool {
	return u.session == nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	session := u.session
	u.session = nil
	defer session.EndSession(ctx)
	return session.CommitTransaction(ctx)
}

// Rollback aborts the transaction; after Commit it does nothing.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	session := u.session
	u.session = nil
	defer session.EndSession(ctx)
	return session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory       = Factory{}
	_ uow.UnitOfWork       = (*Unit)(nil)
	_ uow.ConcurrentReader = (*Unit)(nil)
)
