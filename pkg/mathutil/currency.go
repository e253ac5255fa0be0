// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/financing-simulator/pkg/constants"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRelativeTolerance checks if two values agree to the given relative
// tolerance, falling back to an absolute comparison near zero.
func WithinRelativeTolerance(val1, val2, tolerance float64) bool {
	scale := math.Max(math.Abs(val1), math.Abs(val2))
	if scale < 1 {
		return math.Abs(val1-val2) <= tolerance
	}
	return math.Abs(val1-val2) <= tolerance*scale
}

// ClampNonNegative returns val, or 0 when val is negative.
func ClampNonNegative(val float64) float64 {
	return math.Max(0, val)
}

// Clamp limits val to [lower, upper].
func Clamp(val, lower, upper float64) float64 {
	return math.Min(math.Max(val, lower), upper)
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// CompoundRate converts a periodic rate in percent into the equivalent rate
// over the given number of periods, also in percent.
func CompoundRate(ratePercent float64, periods float64) float64 {
	r := ratePercent / constants.PercentageMultiplier
	return math.Expm1(periods*math.Log1p(r)) * constants.PercentageMultiplier
}
