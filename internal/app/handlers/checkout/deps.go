package checkout

import (
	"context"
	"errors"
	"log/slog"

	"vendibook/internal/app/dto"
	apppricing "vendibook/internal/app/handlers/pricing"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/uow"
	domaincheckout "vendibook/internal/domain/checkout"
	domainpricing "vendibook/internal/domain/pricing"
	"vendibook/internal/domain/slots"
)

var ErrListingUnavailable = errors.New("checkout: listing is not accepting bookings")

// Deps are the collaborators shared by the checkout handlers.
type Deps struct {
	UoWFactory uow.UoWFactory
	Sessions   domaincheckout.SessionStore
	Feeds      support.FeedLoader
	Calculator domainpricing.Calculator
	Clock      support.Clock
	Logger     *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) ownedSession(ctx context.Context, id, renterID string) (*domaincheckout.Session, error) {
	s, err := d.Sessions.Get(ctx, domaincheckout.SessionID(id))
	if err != nil {
		return nil, err
	}
	if s.RenterID != renterID {
		return nil, domaincheckout.ErrNotSessionOwner
	}
	return s, nil
}

func candidateOf(sel domaincheckout.Selection) slots.Candidate {
	return slots.Candidate{Span: sel.Span, Hours: sel.Hours}
}

// slotChecker returns a checker backed by reservations read now. Single-slot
// listings and empty selections never consult it.
func (d Deps) slotChecker(ctx context.Context, unit uow.UnitOfWork, s *domaincheckout.Session) (domaincheckout.SlotChecker, error) {
	if s.Selection.IsZero() || !s.Profile.MultiSlot() {
		return func(domaincheckout.Selection) bool { return true }, nil
	}
	resolver, _, err := d.Feeds.Resolver(ctx, unit, s.ListingID(), s.Selection.Span, d.Clock.Today())
	if err != nil {
		return nil, err
	}
	return func(sel domaincheckout.Selection) bool {
		return resolver.SlotFree(sel.SlotNumber, candidateOf(sel))
	}, nil
}

func (d Deps) quote(s *domaincheckout.Session) *dto.Quote {
	sel := s.Selection
	if sel.IsZero() {
		return nil
	}
	hours := 0
	if sel.Hours != nil {
		hours = sel.Hours.Hours()
	}
	input, err := apppricing.QuoteInputFor(s.Profile, sel.Span.Start, sel.Span.End, hours, s.Fulfillment.Method)
	if err != nil {
		return nil
	}
	q, err := d.Calculator.Quote(input)
	if err != nil || q.IsZero() {
		return nil
	}
	out := dto.MapQuote(q)
	return &out
}

// view renders the session with fresh step states.
func (d Deps) view(ctx context.Context, s *domaincheckout.Session) (dto.CheckoutSession, error) {
	unit, ctx, release, err := uow.Reuse(ctx, d.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	defer release()
	check, err := d.slotChecker(ctx, unit, s)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	return dto.MapCheckoutSession(s, check, d.quote(s)), nil
}

// advanceFrom moves the pointer past step when it is the current one and now complete.
func (d Deps) advanceFrom(ctx context.Context, s *domaincheckout.Session, step domaincheckout.Step) error {
	if s.Current != step {
		return nil
	}
	unit, ctx, release, err := uow.Reuse(ctx, d.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer release()
	check, err := d.slotChecker(ctx, unit, s)
	if err != nil {
		return err
	}
	if _, err := s.Advance(check, d.Clock.Now()); err != nil && !errors.Is(err, domaincheckout.ErrStepIncomplete) {
		return err
	}
	return nil
}
