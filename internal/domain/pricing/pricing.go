package pricing

import (
	"errors"
	"fmt"
	"strings"

	"vendibook/internal/domain/fees"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

const (
	DaysPerMonth = 30
	DaysPerWeek  = 7
)

var (
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
	ErrNegativeRate    = errors.New("pricing: rates cannot be negative")
	ErrNoBookableRate  = errors.New("pricing: daily or hourly rate required")
	ErrMixedCurrencies = errors.New("pricing: rate card mixes currencies")
	ErrNothingToPrice  = errors.New("pricing: no duration selected")
)

type Unit string

const (
	UnitMonth Unit = "month"
	UnitWeek  Unit = "week"
	UnitDay   Unit = "day"
	UnitHour  Unit = "hour"
)

// RateCard holds the tier rates of a listing. A rate with a non-positive amount is absent.
type RateCard struct {
	Daily   money.Money `json:"daily"`
	Weekly  money.Money `json:"weekly"`
	Monthly money.Money `json:"monthly"`
	Hourly  money.Money `json:"hourly"`
}

func (r RateCard) HasDaily() bool  { return r.Daily.Positive() }
func (r RateCard) HasHourly() bool { return r.Hourly.Positive() }

func (r RateCard) Currency() string {
	for _, m := range []money.Money{r.Daily, r.Hourly, r.Weekly, r.Monthly} {
		if m.Currency != "" {
			return m.Currency
		}
	}
	return money.DefaultCurrency
}

func (r RateCard) Validate() error {
	currency := ""
	for _, m := range []money.Money{r.Daily, r.Weekly, r.Monthly, r.Hourly} {
		if m.IsNegative() {
			return ErrNegativeRate
		}
		if !m.Positive() {
			continue
		}
		if m.Currency == "" {
			return ErrCurrencyUnset
		}
		if currency != "" && m.Currency != currency {
			return ErrMixedCurrencies
		}
		currency = m.Currency
	}
	if !r.HasDaily() && !r.HasHourly() {
		return ErrNoBookableRate
	}
	return nil
}

// Monotonic reports whether greedy totals never drop as the day count grows.
// Greedy totals repeat with the largest tier's period, so one period past the
// first boundary is enough to check.
func (r RateCard) Monotonic() bool {
	if !r.HasDaily() {
		return true
	}
	limit := DaysPerMonth + DaysPerWeek
	if r.Monthly.Positive() {
		limit = 2*DaysPerMonth + DaysPerWeek
	}
	prev := int64(0)
	for days := 1; days <= limit; days++ {
		total := PriceForDuration(days, r).Total.Amount
		if total < prev {
			return false
		}
		prev = total
	}
	return true
}

// Line is one consumed tier of a price decomposition.
type Line struct {
	Unit   Unit        `json:"unit"`
	Count  int         `json:"count"`
	Rate   money.Money `json:"rate"`
	Amount money.Money `json:"amount"`
}

// Label renders the line as "2 months @ $1,200".
func (l Line) Label() string {
	return fmt.Sprintf("%s @ %s", countLabel(l.Count, l.Unit), l.Rate.Format())
}

type Price struct {
	Total     money.Money `json:"total"`
	Lines     []Line      `json:"lines,omitempty"`
	Breakdown string      `json:"breakdown"`
}

func (p Price) IsZero() bool {
	return p.Total.Amount <= 0
}

// PriceForDuration consumes 30-day months, then 7-day weeks, then prices the
// remainder at the daily rate. Absent tiers fall through to the next cheaper one.
// days <= 0 or a missing daily rate yields a zero price with an empty breakdown.
func PriceForDuration(days int, rates RateCard) Price {
	zero := Price{Total: money.Zero(rates.Currency())}
	if days <= 0 || !rates.HasDaily() {
		return zero
	}
	remaining := days
	lines := make([]Line, 0, 3)
	if rates.Monthly.Positive() && remaining >= DaysPerMonth {
		n := remaining / DaysPerMonth
		lines = append(lines, newLine(UnitMonth, n, rates.Monthly))
		remaining -= n * DaysPerMonth
	}
	if rates.Weekly.Positive() && remaining >= DaysPerWeek {
		n := remaining / DaysPerWeek
		lines = append(lines, newLine(UnitWeek, n, rates.Weekly))
		remaining -= n * DaysPerWeek
	}
	if remaining > 0 {
		lines = append(lines, newLine(UnitDay, remaining, rates.Daily))
	}
	return sum(lines, rates.Daily.Currency)
}

// PriceForHours is hours × rate with no tiering.
func PriceForHours(hours int, hourlyRate money.Money) Price {
	if hours <= 0 || !hourlyRate.Positive() {
		currency := hourlyRate.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		return Price{Total: money.Zero(currency)}
	}
	return sum([]Line{newLine(UnitHour, hours, hourlyRate)}, hourlyRate.Currency)
}

// RentalDays counts the billable days of a date span: the nights between the
// ends, with a same-day rental billed as one day.
func RentalDays(span daterange.Span) int {
	if span.Validate() != nil {
		return 0
	}
	if n := span.Nights(); n > 0 {
		return n
	}
	return 1
}

func newLine(unit Unit, count int, rate money.Money) Line {
	return Line{Unit: unit, Count: count, Rate: rate, Amount: rate.Multiply(int64(count))}
}

func sum(lines []Line, currency string) Price {
	total := money.Zero(currency)
	labels := make([]string, 0, len(lines))
	for _, line := range lines {
		total.Amount += line.Amount.Amount
		labels = append(labels, line.Label())
	}
	return Price{Total: total, Lines: lines, Breakdown: strings.Join(labels, " + ")}
}

func countLabel(n int, unit Unit) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Quote is the checkout summary for one selection.
type Quote struct {
	DurationLabel string         `json:"duration_label"`
	BasePrice     money.Money    `json:"base_price"`
	Breakdown     string         `json:"breakdown"`
	Lines         []Line         `json:"lines,omitempty"`
	DeliveryFee   money.Money    `json:"delivery_fee"`
	ServiceFee    money.Money    `json:"service_fee"`
	TotalWithFees money.Money    `json:"total_with_fees"`
	Fees          fees.Breakdown `json:"fees"`
}

func (q Quote) IsZero() bool {
	return q.BasePrice.Amount <= 0
}

// QuoteInput selects either a day span or an hour count.
type QuoteInput struct {
	Rates       RateCard
	Span        daterange.Span
	Hours       int
	DeliveryFee money.Money
}

// Calculator composes tiered pricing with the fee engine.
type Calculator struct {
	fees fees.Engine
}

func NewCalculator(engine fees.Engine) Calculator {
	return Calculator{fees: engine}
}

// Quote prices the selection. A degenerate selection returns a zero quote and
// no error; callers must refuse to submit it.
func (c Calculator) Quote(input QuoteInput) (Quote, error) {
	var (
		price Price
		label string
	)
	switch {
	case input.Hours > 0:
		price = PriceForHours(input.Hours, input.Rates.Hourly)
		label = countLabel(input.Hours, UnitHour)
	case !input.Span.IsZero():
		days := RentalDays(input.Span)
		price = PriceForDuration(days, input.Rates)
		label = countLabel(days, UnitDay)
	default:
		return Quote{}, ErrNothingToPrice
	}
	quote := Quote{
		DurationLabel: label,
		BasePrice:     price.Total,
		Breakdown:     price.Breakdown,
		Lines:         price.Lines,
	}
	if price.IsZero() {
		return quote, nil
	}
	delivery := input.DeliveryFee
	if delivery.Currency == "" {
		delivery = money.Zero(price.Total.Currency)
	}
	breakdown, err := c.fees.Compute(price.Total, delivery)
	if err != nil {
		return Quote{}, fmt.Errorf("pricing: fees: %w", err)
	}
	quote.DeliveryFee = delivery
	quote.ServiceFee = breakdown.RenterFee
	quote.TotalWithFees = breakdown.CustomerTotal
	quote.Fees = breakdown
	return quote, nil
}
