// Package money holds the currency arithmetic shared by the ledger, the pool
// calculator and the settlement engine. Every amount is a decimal.Decimal with
// two fractional digits; nothing in here touches binary floating point.
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits of the smallest currency unit.
const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// FloorCents truncates d down to the smallest currency unit.
func FloorCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(Places)
}

// HasCents reports whether d fits in the smallest currency unit without
// losing precision.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Places))
}

// Percent returns amount * rate / 100 rounded down to the smallest unit.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	if amount.IsZero() || rate.IsZero() {
		return decimal.Zero
	}
	q, _ := amount.Mul(rate).QuoRem(hundred, Places)
	return q
}

// ProRata splits pool by part/whole and rounds the share down to the
// smallest unit. The division is exact up to the truncation point, so
// summing ProRata over a partition of whole never exceeds pool.
func ProRata(pool, part, whole decimal.Decimal) decimal.Decimal {
	if whole.Sign() <= 0 || part.Sign() <= 0 || pool.Sign() <= 0 {
		return decimal.Zero
	}
	q, _ := pool.Mul(part).QuoRem(whole, Places)
	return q
}

// Ratio returns a/b rounded to the smallest unit, or zero when b is zero.
// It is meant for display values such as payout multipliers.
func Ratio(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, Places)
}

// IsMultipleOf reports whether d is a positive whole multiple of unit.
func IsMultipleOf(d, unit decimal.Decimal) bool {
	if unit.Sign() <= 0 || d.Sign() <= 0 {
		return false
	}
	return d.Mod(unit).IsZero()
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
