package listings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/outbox"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const (
	createListingKey   = "host.listings.create"
	updateInventoryKey = "host.listings.inventory"
	activateListingKey = "host.listings.activate"
	suspendListingKey  = "host.listings.suspend"
	getListingKey      = "listings.get"
)

var (
	ErrListingNotOwned = errors.New("listings: not owned by host")
	ErrSlotsInUse      = errors.New("listings: slot count cannot change while reservations are active")
)

// ListingPayload is the host-editable description of a listing.
type ListingPayload struct {
	Title                string                         `json:"title"`
	Description          string                         `json:"description"`
	Category             domainlistings.Category        `json:"category"`
	Mode                 domainlistings.Mode            `json:"mode"`
	Address              domainlistings.Address         `json:"address"`
	InstantBook          bool                           `json:"instant_book"`
	Photos               []string                       `json:"photos,omitempty"`
	BusinessInfoRequired *bool                          `json:"business_info_required,omitempty"`
	Inventory            domainlistings.InventoryParams `json:"inventory"`
}

// Host is the shared wiring of host listing commands.
type Host struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h Host) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// owned loads the listing through the unit in ctx and checks its host.
func (h Host) owned(ctx context.Context, hostID, listingID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, nil, err
	}
	if listing.Host != domainlistings.HostID(hostID) {
		return nil, nil, ErrListingNotOwned
	}
	return unit, listing, nil
}

func (h Host) save(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing) (dto.Listing, error) {
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	return dto.MapListing(listing), nil
}

type CreateListingCommand struct {
	HostID  string `json:"host_id" validate:"required"`
	Payload ListingPayload
}

func (c CreateListingCommand) Key() string   { return createListingKey }
func (c CreateListingCommand) Actor() string { return c.HostID }

type CreateListingHandler struct {
	Host
	NewID func() string
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	newID := h.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:                   domainlistings.ListingID(newID()),
		Host:                 domainlistings.HostID(cmd.HostID),
		Title:                cmd.Payload.Title,
		Description:          cmd.Payload.Description,
		Category:             cmd.Payload.Category,
		Mode:                 cmd.Payload.Mode,
		Address:              cmd.Payload.Address,
		InstantBook:          cmd.Payload.InstantBook,
		Photos:               cmd.Payload.Photos,
		Inventory:            cmd.Payload.Inventory,
		BusinessInfoRequired: cmd.Payload.BusinessInfoRequired,
		Now:                  h.Clock.Now(),
	})
	if err != nil {
		return dto.Listing{}, err
	}
	out, err := h.save(ctx, unit, listing)
	if err != nil {
		return dto.Listing{}, err
	}
	h.logger().InfoContext(ctx, "host listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	return out, nil
}

type UpdateInventoryCommand struct {
	HostID    string `json:"host_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
	Inventory domainlistings.InventoryParams
}

func (c UpdateInventoryCommand) Key() string   { return updateInventoryKey }
func (c UpdateInventoryCommand) Actor() string { return c.HostID }

type UpdateInventoryHandler struct {
	Host
}

func (h *UpdateInventoryHandler) Handle(ctx context.Context, cmd UpdateInventoryCommand) (dto.Listing, error) {
	unit, listing, err := h.owned(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return dto.Listing{}, err
	}
	before := listing.TotalSlots
	if err := listing.UpdateInventory(cmd.Inventory, h.Clock.Now()); err != nil {
		return dto.Listing{}, err
	}
	if listing.TotalSlots != before {
		if err := h.ensureNoActiveReservations(ctx, unit, listing.ID); err != nil {
			return dto.Listing{}, err
		}
	}
	return h.save(ctx, unit, listing)
}

// ensureNoActiveReservations guards slot renumbering: stored reservations keep
// the slot numbers they were booked under.
func (h *UpdateInventoryHandler) ensureNoActiveReservations(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID) error {
	today := h.Clock.Today()
	upcoming := daterange.Span{Start: today, End: today.AddYears(domainavailability.BookingHorizonYears)}
	active, err := unit.Reservations().ActiveForListing(ctx, id, upcoming)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		return ErrSlotsInUse
	}
	return nil
}

type ActivateListingCommand struct {
	HostID    string `json:"host_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
}

func (c ActivateListingCommand) Key() string   { return activateListingKey }
func (c ActivateListingCommand) Actor() string { return c.HostID }

type ActivateListingHandler struct {
	Host
}

func (h *ActivateListingHandler) Handle(ctx context.Context, cmd ActivateListingCommand) (dto.Listing, error) {
	unit, listing, err := h.owned(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return dto.Listing{}, err
	}
	if err := listing.Activate(h.Clock.Now()); err != nil {
		return dto.Listing{}, err
	}
	return h.save(ctx, unit, listing)
}

type SuspendListingCommand struct {
	HostID    string `json:"host_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
	Reason    string `json:"reason"`
}

func (c SuspendListingCommand) Key() string   { return suspendListingKey }
func (c SuspendListingCommand) Actor() string { return c.HostID }

type SuspendListingHandler struct {
	Host
}

func (h *SuspendListingHandler) Handle(ctx context.Context, cmd SuspendListingCommand) (dto.Listing, error) {
	unit, listing, err := h.owned(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return dto.Listing{}, err
	}
	if err := listing.Suspend(h.Clock.Now(), cmd.Reason); err != nil {
		return dto.Listing{}, err
	}
	return h.save(ctx, unit, listing)
}

type GetListingQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Listing{}, err
	}
	defer release()
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	return dto.MapListing(listing), nil
}

var _ commands.Handler[CreateListingCommand, dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[UpdateInventoryCommand, dto.Listing] = (*UpdateInventoryHandler)(nil)
var _ commands.Handler[ActivateListingCommand, dto.Listing] = (*ActivateListingHandler)(nil)
var _ commands.Handler[SuspendListingCommand, dto.Listing] = (*SuspendListingHandler)(nil)
var _ queries.Handler[GetListingQuery, dto.Listing] = (*GetListingHandler)(nil)
