package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type Factory struct {
	DB *sqlx.DB
}

// Begin opens a read-committed transaction. Read-only units query the pool
// directly.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	if opts.ReadOnly {
		return &Unit{q: f.DB}, nil
	}
	tx, err := f.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &Unit{q: tx, tx: tx}, nil
}

type Unit struct {
	q  querier
	tx *sqlx.Tx
}

func (u *Unit) Listings() domainlistings.ListingRepository {
	return &ListingRepository{q: u.q}
}

func (u *Unit) Calendars() domainavailability.Repository {
	return &CalendarRepository{q: u.q}
}

func (u *Unit) Reservations() domainbooking.Repository {
	return &ReservationRepository{q: u.q}
}

// ConcurrentReads is false inside a transaction: one connection serves it.
func (u *Unit) ConcurrentReads() bool {
	return u.tx == nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit()
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// conn returns the transaction of the unit in ctx, or db outside one.
func conn(ctx context.Context, db *sqlx.DB) querier {
	if unit, ok := uow.FromContext(ctx); ok {
		if pu, ok := unit.(*Unit); ok && pu.tx != nil {
			return pu.tx
		}
	}
	return db
}

var (
	_ uow.UoWFactory       = Factory{}
	_ uow.UnitOfWork       = (*Unit)(nil)
	_ uow.ConcurrentReader = (*Unit)(nil)
)
