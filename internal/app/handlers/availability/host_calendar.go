package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"vendibook/internal/app/commands"
	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/outbox"
	"vendibook/internal/app/uow"
	domainavailability "vendibook/internal/domain/availability"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const (
	blockDatesKey   = "host.calendar.block"
	releaseBlockKey = "host.calendar.release"
)

var ErrCalendarNotOwned = errors.New("availability: listing not owned by host")

type BlockDatesCommand struct {
	HostID    string `json:"host_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
	Span      daterange.Span
	Reason    domainavailability.BlockReason `json:"reason"`
	Reference string                         `json:"reference"`
}

func (c BlockDatesCommand) Key() string   { return blockDatesKey }
func (c BlockDatesCommand) Actor() string { return c.HostID }

type ReleaseBlockCommand struct {
	HostID    string `json:"host_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
	Reference string `json:"reference" validate:"required"`
}

func (c ReleaseBlockCommand) Key() string   { return releaseBlockKey }
func (c ReleaseBlockCommand) Actor() string { return c.HostID }

// CalendarHandler serves host block and release commands.
type CalendarHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *CalendarHandler) calendar(ctx context.Context, hostID, listingID string) (uow.UnitOfWork, *domainavailability.Calendar, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	id := domainlistings.ListingID(listingID)
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if listing.Host != domainlistings.HostID(hostID) {
		return nil, nil, ErrCalendarNotOwned
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if errors.Is(err, domainavailability.ErrCalendarNotFound) {
		return unit, domainavailability.NewCalendar(id), nil
	}
	return unit, cal, err
}

func (h *CalendarHandler) save(ctx context.Context, unit uow.UnitOfWork, cal *domainavailability.Calendar) error {
	if err := unit.Calendars().Save(ctx, cal); err != nil {
		return err
	}
	return outbox.Drain(ctx, h.Outbox, h.Encoder, cal)
}

type BlockDatesHandler struct {
	CalendarHandler
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (dto.CalendarBlock, error) {
	unit, cal, err := h.calendar(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return dto.CalendarBlock{}, err
	}
	reason := cmd.Reason
	if reason == "" {
		reason = domainavailability.ReasonHostBlock
	}
	ref := strings.TrimSpace(cmd.Reference)
	if ref == "" {
		ref = uuid.NewString()
	}
	if err := cal.Block(cmd.Span, reason, ref, h.Clock.Now()); err != nil {
		return dto.CalendarBlock{}, err
	}
	if err := h.save(ctx, unit, cal); err != nil {
		return dto.CalendarBlock{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "calendar dates blocked", "listing_id", cmd.ListingID, "reference", ref, "span", cmd.Span.Start.String()+".."+cmd.Span.End.String())
	}
	return dto.CalendarBlock{Start: cmd.Span.Start.String(), End: cmd.Span.End.String(), Reason: string(reason), Reference: ref}, nil
}

type ReleaseBlockHandler struct {
	CalendarHandler
}

func (h *ReleaseBlockHandler) Handle(ctx context.Context, cmd ReleaseBlockCommand) (struct{}, error) {
	unit, cal, err := h.calendar(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return struct{}{}, err
	}
	if err := cal.Release(cmd.Reference, h.Clock.Now()); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, h.save(ctx, unit, cal)
}

var _ commands.Handler[BlockDatesCommand, dto.CalendarBlock] = (*BlockDatesHandler)(nil)
var _ commands.Handler[ReleaseBlockCommand, struct{}] = (*ReleaseBlockHandler)(nil)
