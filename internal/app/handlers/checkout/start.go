package checkout

import (
	"context"

	"github.com/google/uuid"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domaincheckout "vendibook/internal/domain/checkout"
	domainlistings "vendibook/internal/domain/listings"
)

const (
	startCheckoutKey = "checkout.start"
	getCheckoutKey   = "checkout.get"
)

type StartCheckoutCommand struct {
	ListingID string `json:"listing_id" validate:"required"`
	RenterID  string `json:"renter_id" validate:"required"`
}

func (c StartCheckoutCommand) Key() string   { return startCheckoutKey }
func (c StartCheckoutCommand) Actor() string { return c.RenterID }

type StartCheckoutHandler struct {
	Deps
	NewID func() string
}

func (h *StartCheckoutHandler) Handle(ctx context.Context, cmd StartCheckoutCommand) (dto.CheckoutSession, error) {
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	defer release()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	if !listing.Bookable() {
		return dto.CheckoutSession{}, ErrListingUnavailable
	}
	newID := h.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	session := domaincheckout.NewSession(domaincheckout.SessionID(newID()), listing.AvailabilityProfile(), cmd.RenterID, h.Clock.Now())
	if err := h.Sessions.Put(ctx, session); err != nil {
		return dto.CheckoutSession{}, err
	}
	h.logger().InfoContext(ctx, "checkout started", "session_id", session.ID, "listing_id", cmd.ListingID)
	return h.view(ctx, session)
}

type GetCheckoutQuery struct {
	SessionID string `json:"session_id" validate:"required"`
	RenterID  string `json:"renter_id" validate:"required"`
}

func (q GetCheckoutQuery) Key() string { return getCheckoutKey }

type GetCheckoutHandler struct {
	Deps
}

func (h *GetCheckoutHandler) Handle(ctx context.Context, q GetCheckoutQuery) (dto.CheckoutSession, error) {
	s, err := h.ownedSession(ctx, q.SessionID, q.RenterID)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	return h.view(ctx, s)
}

var _ commands.Handler[StartCheckoutCommand, dto.CheckoutSession] = (*StartCheckoutHandler)(nil)
var _ queries.Handler[GetCheckoutQuery, dto.CheckoutSession] = (*GetCheckoutHandler)(nil)
