package lib

import "github.com/shopspring/decimal"

// EffectivePrice returns the first candidate that is set and non-zero, or zero.
//
// Mapping lines pass (price override, variant price); product lines pass
// (discounted price, original price).
func EffectivePrice(candidates ...*decimal.Decimal) decimal.Decimal {
	for _, c := range candidates {
		if c != nil && !c.IsZero() {
			return *c
		}
	}
	return decimal.Zero
}

func IsValidPrice(price decimal.Decimal) bool {
	return !price.IsNegative()
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
