package uow

import (
	"context"

	domainavailability "vendibook/internal/domain/availability"
	domainbooking "vendibook/internal/domain/booking"
	domainlistings "vendibook/internal/domain/listings"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// reservation repository's conflict check is only authoritative inside it.
type UnitOfWork interface {
	Listings() domainlistings.ListingRepository
	Calendars() domainavailability.Repository
	Reservations() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ConcurrentReader is implemented by units whose repositories may be read from
// several goroutines at once. Units that do not implement it are read sequentially.
type ConcurrentReader interface {
	ConcurrentReads() bool
}

func ConcurrentReads(unit UnitOfWork) bool {
	cr, ok := unit.(ConcurrentReader)
	return ok && cr.ConcurrentReads()
}
