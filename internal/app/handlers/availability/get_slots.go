package availability

import (
	"context"

	"vendibook/internal/app/dto"
	"vendibook/internal/app/handlers/support"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/slots"
)

const getSlotsKey = "availability.slots"

// GetSlotsQuery asks which spaces are free for a period. Hours > 0 selects an
// hourly candidate starting at StartHour on Start.
type GetSlotsQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
	Start     daterange.Date
	End       daterange.Date
	StartHour int `json:"start_hour" validate:"min=0,max=23"`
	Hours     int `json:"hours" validate:"min=0,max=24"`
}

func (q GetSlotsQuery) Key() string { return getSlotsKey }

func (q GetSlotsQuery) candidate() (slots.Candidate, error) {
	if q.Start.IsZero() {
		return slots.Candidate{}, nil
	}
	end := q.End
	if end.IsZero() || q.Hours > 0 {
		end = q.Start
	}
	span := daterange.Span{Start: q.Start, End: end}
	if span.Validate() != nil {
		return slots.Candidate{}, ErrInvalidWindow
	}
	c := slots.Candidate{Span: span}
	if q.Hours > 0 {
		w, err := hourly.NewWindow(q.StartHour, hourly.EndHour(q.StartHour, q.Hours))
		if err != nil {
			return slots.Candidate{}, err
		}
		c.Hours = &w
	}
	return c, nil
}

type GetSlotsHandler struct {
	UoWFactory uow.UoWFactory
	Feeds      support.FeedLoader
	Clock      support.Clock
}

// Handle lists every space with its availability. Without a candidate period
// all spaces are reported available.
func (h *GetSlotsHandler) Handle(ctx context.Context, q GetSlotsQuery) (dto.SlotCollection, error) {
	candidate, err := q.candidate()
	if err != nil {
		return dto.SlotCollection{}, err
	}
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.SlotCollection{}, err
	}
	defer release()

	window := candidate.Span
	if window.IsZero() {
		window = daterange.SingleDay(h.Clock.Today())
	}
	resolver, _, err := h.Feeds.Resolver(ctx, unit, domainlistings.ListingID(q.ListingID), window, h.Clock.Today())
	if err != nil {
		return dto.SlotCollection{}, err
	}
	items, err := resolver.SlotsFor(candidate)
	if err != nil {
		return dto.SlotCollection{}, err
	}
	return dto.MapSlots(q.ListingID, items), nil
}

var _ queries.Handler[GetSlotsQuery, dto.SlotCollection] = (*GetSlotsHandler)(nil)
