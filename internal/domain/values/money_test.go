package values

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		wantErr  bool
	}{
		{
			name:     "valid USD amount",
			amount:   decimal.NewFromFloat(123.45),
			currency: USD,
			wantErr:  false,
		},
		{
			name:     "zero amount",
			amount:   decimal.Zero,
			currency: USD,
			wantErr:  false,
		},
		{
			name:     "negative amount",
			amount:   decimal.NewFromFloat(-50.0),
			currency: USD,
			wantErr:  false,
		},
		{
			name:     "empty currency",
			amount:   decimal.NewFromFloat(100.0),
			currency: "",
			wantErr:  true,
		},
		{
			name:     "invalid currency",
			amount:   decimal.NewFromFloat(100.0),
			currency: "INVALID",
			wantErr:  true,
		},
		{
			name:     "unsupported currency",
			amount:   decimal.NewFromFloat(100.0),
			currency: "EUR",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			money, err := NewMoney(tt.amount, tt.currency)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, money.Amount().Equal(tt.amount))
			assert.Equal(t, tt.currency, money.Currency())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustNewMoneyFromFloat(26.25, USD)
	b := MustNewMoneyFromFloat(3.75, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "$30.00", sum.String())

	scaled := b.MulFloat(7)
	assert.Equal(t, "$26.25", scaled.RoundToNearestCent().String())

	_, err = a.Add(MustNewMoneyFromFloat(1, CAD))
	assert.Error(t, err)
}

func TestMoney_Compare(t *testing.T) {
	low := MustNewMoneyFromFloat(10, USD)
	high := MustNewMoneyFromFloat(20, USD)

	assert.Equal(t, -1, low.Compare(high))
	assert.Equal(t, 1, high.Compare(low))
	assert.Equal(t, 0, low.Compare(MustNewMoneyFromFloat(10, USD)))

	assert.Panics(t, func() {
		low.Compare(MustNewMoneyFromFloat(10, CAD))
	})
}

func TestMoney_JSON(t *testing.T) {
	loss := MustNewMoneyFromFloat(26.25, USD)

	data, err := json.Marshal(loss)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"26.25","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, loss.Equal(decoded))
}

func TestZeroUSD(t *testing.T) {
	z := ZeroUSD()
	assert.True(t, z.IsZero())
	assert.False(t, z.IsNegative())
	assert.Equal(t, USD, z.Currency())
}
