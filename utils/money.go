package utils

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds x to 2 decimal places (half away from zero).
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// ToMinorUnits converts a currency amount to cents for payment processors.
func ToMinorUnits(x decimal.Decimal) int64 {
	return x.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts cents back to a 2dp currency amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred).Round(2)
}
