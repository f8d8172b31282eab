package domain

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to 2 decimal places, half away from zero.
// Rounding is applied at each computed step rather than carried in full
// precision; this lossy policy mirrors the source system's display rounding
// and is relied on by parity tests.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
