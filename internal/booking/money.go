package booking

import "fmt"

// Money is a monetary amount in minor units (cents). All pricing arithmetic
// stays in minor units; formatting happens only at the display boundary.
type Money int64

const rateDenominator = 10_000

// MulRate multiplies an amount by a rate expressed in basis points,
// rounding half up. Only non-negative amounts are expected.
func MulRate(amount Money, bps int64) Money {
	return Money((int64(amount)*bps + rateDenominator/2) / rateDenominator)
}

// String formats the amount as a decimal with two fraction digits.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func minMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}
