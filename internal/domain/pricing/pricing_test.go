package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/fees"
	"vendibook/internal/domain/pricing"
	"vendibook/internal/domain/shared/daterange"
	"vendibook/internal/domain/shared/money"
)

func TestPriceForDuration(t *testing.T) {
	card := pricing.RateCard{
		Daily:   money.Dollars(10),
		Weekly:  money.Dollars(60),
		Monthly: money.Dollars(200),
	}

	tests := []struct {
		name      string
		days      int
		rates     pricing.RateCard
		total     money.Money
		breakdown string
	}{
		{"one week", 7, pricing.RateCard{Daily: money.Dollars(100), Weekly: money.Dollars(600)}, money.Dollars(600), "1 week @ $600"},
		{"month and week", 37, card, money.Dollars(260), "1 month @ $200 + 1 week @ $60"},
		{"month and two weeks", 44, card, money.Dollars(320), "1 month @ $200 + 2 weeks @ $60"},
		{"month week and remainder", 40, card, money.Dollars(290), "1 month @ $200 + 1 week @ $60 + 3 days @ $10"},
		{"two months", 60, card, money.Dollars(400), "2 months @ $200"},
		{"missing weekly falls through", 40, pricing.RateCard{Daily: money.Dollars(10), Monthly: money.Dollars(200)}, money.Dollars(300), "1 month @ $200 + 10 days @ $10"},
		{"single day", 1, card, money.Dollars(10), "1 day @ $10"},
		{"zero days", 0, card, money.Dollars(0), ""},
		{"no daily rate", 10, pricing.RateCard{Weekly: money.Dollars(60)}, money.Dollars(0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.PriceForDuration(tt.days, tt.rates)
			assert.Equal(t, tt.total, got.Total)
			assert.Equal(t, tt.breakdown, got.Breakdown)
		})
	}
}

func TestPriceForDuration_LinesSumToTotal(t *testing.T) {
	card := pricing.RateCard{Daily: money.Dollars(100), Weekly: money.Dollars(600), Monthly: money.Dollars(2500)}
	for days := 1; days <= 120; days++ {
		price := pricing.PriceForDuration(days, card)
		var sum int64
		for _, line := range price.Lines {
			sum += line.Amount.Amount
		}
		require.Equal(t, price.Total.Amount, sum, "days=%d", days)
	}
}

func TestPriceForDuration_MonotonicForCoherentCard(t *testing.T) {
	card := pricing.RateCard{Daily: money.Dollars(100), Weekly: money.Dollars(600), Monthly: money.Dollars(2500)}
	require.True(t, card.Monotonic())

	prev := int64(0)
	for days := 1; days <= 400; days++ {
		total := pricing.PriceForDuration(days, card).Total.Amount
		require.GreaterOrEqual(t, total, prev, "days=%d", days)
		prev = total
	}
}

func TestRateCard_MonotonicDetectsCliff(t *testing.T) {
	card := pricing.RateCard{Daily: money.Dollars(10), Weekly: money.Dollars(60), Monthly: money.Dollars(200)}
	assert.False(t, card.Monotonic())
}

func TestPriceForHours(t *testing.T) {
	got := pricing.PriceForHours(3, money.Must(4550, "USD"))
	assert.Equal(t, money.Must(13650, "USD"), got.Total)
	assert.Equal(t, "3 hours @ $45.50", got.Breakdown)

	assert.True(t, pricing.PriceForHours(0, money.Dollars(10)).IsZero())
	assert.True(t, pricing.PriceForHours(2, money.Money{}).IsZero())
}

func TestRateCard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		card    pricing.RateCard
		wantErr error
	}{
		{"daily only", pricing.RateCard{Daily: money.Dollars(10)}, nil},
		{"hourly only", pricing.RateCard{Hourly: money.Dollars(10)}, nil},
		{"weekly only", pricing.RateCard{Weekly: money.Dollars(10)}, pricing.ErrNoBookableRate},
		{"negative", pricing.RateCard{Daily: money.Dollars(-1)}, pricing.ErrNegativeRate},
		{"mixed", pricing.RateCard{Daily: money.Dollars(10), Weekly: money.Must(100, "EUR")}, pricing.ErrMixedCurrencies},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRentalDays(t *testing.T) {
	oct := func(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

	assert.Equal(t, 7, pricing.RentalDays(daterange.Span{Start: oct(1), End: oct(8)}))
	assert.Equal(t, 1, pricing.RentalDays(daterange.SingleDay(oct(3))))
	assert.Equal(t, 0, pricing.RentalDays(daterange.Span{Start: oct(5), End: oct(1)}))
}

func TestCalculator_Quote(t *testing.T) {
	calc := pricing.NewCalculator(fees.NewEngine(nil))
	oct := func(d int) daterange.Date { return daterange.NewDate(2026, time.October, d) }

	quote, err := calc.Quote(pricing.QuoteInput{
		Rates: pricing.RateCard{Daily: money.Dollars(100), Weekly: money.Dollars(600)},
		Span:  daterange.Span{Start: oct(1), End: oct(8)},
	})
	require.NoError(t, err)

	assert.Equal(t, "7 days", quote.DurationLabel)
	assert.Equal(t, money.Dollars(600), quote.BasePrice)
	assert.Equal(t, "1 week @ $600", quote.Breakdown)
	assert.Equal(t, money.Must(7740, "USD"), quote.ServiceFee)
	assert.Equal(t, money.Must(67740, "USD"), quote.TotalWithFees)
}

func TestCalculator_QuoteDegenerate(t *testing.T) {
	calc := pricing.NewCalculator(fees.NewEngine(nil))

	quote, err := calc.Quote(pricing.QuoteInput{
		Rates: pricing.RateCard{Daily: money.Dollars(100)},
		Hours: 4,
	})
	require.NoError(t, err)
	assert.True(t, quote.IsZero())
	assert.Equal(t, "", quote.Breakdown)

	_, err = calc.Quote(pricing.QuoteInput{Rates: pricing.RateCard{Daily: money.Dollars(100)}})
	assert.ErrorIs(t, err, pricing.ErrNothingToPrice)
}
