package availability

import (
	"context"
	"log/slog"

	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const getHoursKey = "availability.hours"

type GetHoursQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
	Date      daterange.Date
	Slot      int `json:"slot" validate:"min=0"`
}

func (q GetHoursQuery) Key() string { return getHoursKey }

type GetHoursHandler struct {
	UoWFactory uow.UoWFactory
	Feeds      support.FeedLoader
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *GetHoursHandler) Handle(ctx context.Context, q GetHoursQuery) (dto.HourlyPlan, error) {
	if q.Date.IsZero() {
		return dto.HourlyPlan{}, ErrInvalidWindow
	}
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.HourlyPlan{}, err
	}
	defer release()

	resolver, _, err := h.Feeds.Resolver(ctx, unit, domainlistings.ListingID(q.ListingID), daterange.SingleDay(q.Date), h.Clock.Today())
	if err != nil {
		return dto.HourlyPlan{}, err
	}
	profile := resolver.Profile()
	slot := q.Slot
	if !profile.MultiSlot() || slot > profile.TotalSlots {
		slot = 0
	}
	plan := resolver.HourlyPlan(q.Date, slot)
	if profile.HourlyEnabled && len(profile.Hourly.Weekly) == 0 && len(profile.Hourly.Overrides) == 0 {
		h.logger().WarnContext(ctx, "hourly booking enabled without operating windows", "listing_id", q.ListingID)
	}
	return dto.MapHourlyPlan(q.ListingID, slot, plan), nil
}

func (h *GetHoursHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ queries.Handler[GetHoursQuery, dto.HourlyPlan] = (*GetHoursHandler)(nil)
