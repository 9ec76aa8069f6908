package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendibook/internal/domain/shared/money"
)

func TestMoney_Format(t *testing.T) {
	tests := []struct {
		name  string
		value money.Money
		want  string
	}{
		{"whole dollars with grouping", money.Dollars(1200), "$1,200"},
		{"cents kept", money.Must(6050, "usd"), "$60.50"},
		{"zero", money.Zero("USD"), "$0"},
		{"negative", money.Dollars(-15), "-$15"},
		{"other currency", money.Must(1000, "CAD"), "CAD 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Format())
		})
	}
}

func TestMoney_BasisPointsRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(7740), money.Dollars(600).BasisPoints(1290).Amount)
	// 12.9% of $0.05 = 0.645 cents
	assert.Equal(t, int64(1), money.Must(5, "USD").BasisPoints(1290).Amount)
	assert.Equal(t, int64(0), money.Must(3, "USD").BasisPoints(1290).Amount)
}

func TestMoney_AddRejectsMismatch(t *testing.T) {
	_, err := money.Dollars(1).Add(money.Must(1, "EUR"))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)

	sum, err := money.Dollars(1).Add(money.Dollars(2))
	require.NoError(t, err)
	assert.Equal(t, money.Dollars(3), sum)
}

func TestNew_InvalidCurrency(t *testing.T) {
	_, err := money.New(100, "US")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}
