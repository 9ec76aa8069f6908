package pricing

import (
	"context"
	"errors"

	"vendibook/internal/app/dto"
	"vendibook/internal/app/queries"
	"vendibook/internal/app/uow"
	"vendibook/internal/domain/hourly"
	domainlistings "vendibook/internal/domain/listings"
	domainpricing "vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

const getQuoteKey = "pricing.quote"

var ErrInvalidSelection = errors.New("pricing: a date range or an hour count is required")

// GetQuoteQuery prices a day span (Start..End) or Hours on a single date.
type GetQuoteQuery struct {
	ListingID   string `json:"listing_id" validate:"required"`
	Start       daterange.Date
	End         daterange.Date
	Hours       int                              `json:"hours" validate:"min=0,max=24"`
	Fulfillment domainlistings.FulfillmentMethod `json:"fulfillment"`
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Calculator domainpricing.Calculator
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	unit, ctx, release, err := uow.Reuse(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Quote{}, err
	}
	defer release()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	input, err := QuoteInputFor(listing.AvailabilityProfile(), q.Start, q.End, q.Hours, q.Fulfillment)
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := h.Calculator.Quote(input)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(quote), nil
}

// QuoteInputFor builds the pricing input for a selection on the listing.
func QuoteInputFor(profile domainlistings.AvailabilityProfile, start, end daterange.Date, hours int, method domainlistings.FulfillmentMethod) (domainpricing.QuoteInput, error) {
	input := domainpricing.QuoteInput{Rates: profile.Rates}
	switch {
	case hours > 0:
		if hours > hourly.HoursPerDay {
			return domainpricing.QuoteInput{}, ErrInvalidSelection
		}
		input.Hours = hours
	case !start.IsZero():
		if end.IsZero() {
			end = start
		}
		span, err := daterange.NewSpan(start, end)
		if err != nil {
			return domainpricing.QuoteInput{}, err
		}
		input.Span = span
	default:
		return domainpricing.QuoteInput{}, ErrInvalidSelection
	}
	if method == domainlistings.FulfillmentDelivery && profile.Supports(method) {
		input.DeliveryFee = profile.DeliveryFee
	} else {
		input.DeliveryFee = money.Zero(profile.Rates.Currency())
	}
	return input, nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
