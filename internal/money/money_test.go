package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundUsesCurrencyExponent(t *testing.T) {
	v := decimal.RequireFromString("12.345")

	assert.Equal(t, "12.35", Round(v, "USD").String())
	assert.Equal(t, "12", Round(v, "JPY").String())
	assert.Equal(t, "12.345", Round(v, "KWD").String())
}

func TestTotalFloorsAtZero(t *testing.T) {
	neg := decimal.RequireFromString("-4.20")
	total := Total(neg, "USD")

	assert.True(t, total.IsZero())
	assert.Equal(t, "0", total.String())
}

func TestTotalZeroIsExact(t *testing.T) {
	assert.True(t, Total(decimal.Zero, "USD").Equal(decimal.Zero))
}

func TestTotalRoundsPositive(t *testing.T) {
	v := decimal.RequireFromString("10.005")
	assert.Equal(t, "10.01", Total(v, "EUR").String())
}

func TestFormat(t *testing.T) {
	v := decimal.RequireFromString("19.9")
	assert.Equal(t, "19.90 USD", Format(v, "USD"))
	assert.Equal(t, "20 JPY", Format(decimal.NewFromInt(20), "JPY"))
}
