package availability

import (
	"context"

	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
)

const getCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
	From      daterange.Date
	To        daterange.Date
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Feeds      support.FeedLoader
	Clock      support.Clock
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	today := h.Clock.Today()
	window, err := calendarWindow(q.From, q.To, today)
	if err != nil {
		return dto.Calendar{}, err
	}

	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Calendar{}, err
	}
	defer release()

	resolver, feed, err := h.Feeds.Resolver(ctx, unit, domainlistings.ListingID(q.ListingID), window, today)
	if err != nil {
		return dto.Calendar{}, err
	}

	days := resolver.ResolveSpan(window)
	out := dto.Calendar{
		ListingID: q.ListingID,
		Today:     today.String(),
		Days:      make([]dto.CalendarDay, 0, len(days)),
		Blocks:    dto.MapCalendarBlocks(feed.Snapshot.Blocks),
	}
	for _, day := range days {
		out.Days = append(out.Days, dto.MapCalendarDay(day))
	}
	return out, nil
}

func calendarWindow(from, to, today daterange.Date) (daterange.Span, error) {
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = from.AddDays(DefaultWindowDays - 1)
	}
	window := daterange.Span{Start: from, End: to}
	if window.Validate() != nil {
		return daterange.Span{}, ErrInvalidWindow
	}
	if window.Days() > MaxWindowDays {
		return daterange.Span{}, ErrWindowTooLong
	}
	return window, nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
