package money

import "github.com/shopspring/decimal"

// minorUnits lists ISO 4217 currencies whose minor unit differs from the
// two-decimal default.
var minorUnits = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"VND": 0,
}

// Exponent returns the number of minor-unit decimals for a currency code.
func Exponent(currency string) int32 {
	if exp, ok := minorUnits[currency]; ok {
		return exp
	}
	return 2
}

// Round rounds an amount to the currency's minor-unit precision, half away
// from zero.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(Exponent(currency))
}

// Total rounds a computed total and floors it at zero. A non-positive input
// yields exact zero, never a rounded artifact.
func Total(amount decimal.Decimal, currency string) decimal.Decimal {
	if amount.Sign() <= 0 {
		return decimal.Zero
	}
	return Round(amount, currency)
}

// Format renders an amount with the currency's minor-unit precision,
// e.g. "19.99 USD".
func Format(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(Exponent(currency)) + " " + currency
}
