// Package money provides the integer-cent monetary scalar shared across the
// simulation core. No floating-point arithmetic is permitted on money; the
// only float-producing code path (arrival amount sampling) rounds to a Money
// before the value is ever stored or compared.
package money

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Money is a signed integer amount in cents. 64 bits is sufficient for any
// realistic simulation horizon. Add, Sub and Mul report overflow to the
// caller; collateral posting and transaction splits check that flag, while
// balance updates in settlement and the LSM pass use plain int64
// arithmetic and cost accumulation discards the flag.
type Money int64

// Zero is the additive identity.
const Zero Money = 0

// Max and Min bound the representable range.
const (
	Max Money = math.MaxInt64
	Min Money = math.MinInt64
)

// Add returns m+other and reports whether the addition overflowed.
func (m Money) Add(other Money) (Money, bool) {
	sum := m + other
	if (other > 0 && sum < m) || (other < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}

// Sub returns m-other and reports whether the subtraction overflowed.
func (m Money) Sub(other Money) (Money, bool) {
	return m.Add(-other)
}

// Mul returns m*n and reports whether the multiplication overflowed.
func (m Money) Mul(n int64) (Money, bool) {
	if m == 0 || n == 0 {
		return 0, true
	}
	result := int64(m) * n
	if result/n != int64(m) {
		return 0, false
	}
	return Money(result), true
}

// Neg returns -m.
func (m Money) Neg() Money {
	return -m
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m < 0
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m > 0
}

// Cmp compares m to other: -1, 0, or 1.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

// Int64 returns the raw cent value.
func (m Money) Int64() int64 {
	return int64(m)
}

// FromDollars constructs a Money from a whole-dollar amount.
func FromDollars(dollars int64) Money {
	return Money(dollars * 100)
}

// String renders cents as a dollar-and-cents amount, e.g. "$1,234.56".
// Implements fmt.Stringer so structured loggers (pkg/logger) stringify it
// automatically instead of printing a bare integer.
func (m Money) String() string {
	sign := ""
	v := m
	if v < 0 {
		sign = "-"
		v = -v
	}
	dollars := int64(v) / 100
	cents := int64(v) % 100
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(dollars), cents)
}

// Humanize renders an approximate, human-friendly amount, e.g. "$1.2M".
// It is a display helper only; no engine code calls it or compares its
// output.
func (m Money) Humanize() string {
	dollarsFloat := float64(m) / 100.0
	sign := ""
	if dollarsFloat < 0 {
		sign = "-"
		dollarsFloat = -dollarsFloat
	}
	return sign + "$" + humanizeSI(dollarsFloat)
}

func humanizeSI(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// RoundHalfEven rounds a fractional-cent float64 sample to the nearest
// Money using banker's rounding, per the arrival generator's documented
// rounding rule (spec §9). Callers must treat the float input as opaque —
// it exists only to cross the distribution-sampling boundary.
func RoundHalfEven(cents float64) Money {
	floor := math.Floor(cents)
	diff := cents - floor
	switch {
	case diff < 0.5:
		return Money(floor)
	case diff > 0.5:
		return Money(floor + 1)
	default:
		// Exactly .5: round to the even integer.
		if math.Mod(floor, 2) == 0 {
			return Money(floor)
		}
		return Money(floor + 1)
	}
}
