// Package types provides value types shared across brimstock modules.
package types

import (
	"fmt"
	"math"
)

// Money is a monetary amount in the smallest currency unit (e.g. cents).
// All arithmetic is integer-only; the organization runs a single currency,
// so no currency code travels with the value.
type Money int64

// Mul multiplies the amount by a quantity.
func (m Money) Mul(qty int64) Money { return m * Money(qty) }

// DivRound divides by n, rounding half away from zero. Returns 0 when n is 0
// so averages over empty sets never produce garbage.
func (m Money) DivRound(n int64) Money {
	if n == 0 {
		return 0
	}
	return Money(math.Round(float64(m) / float64(n)))
}

// Units returns the amount in major units as a float, for display only.
func (m Money) Units() float64 { return float64(m) / 100 }

// String renders the amount in major units with two decimals.
func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Units())
}

// Percent returns part/whole as a percentage rounded to two decimals,
// 0 when whole is 0.
func Percent(part, whole Money) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
