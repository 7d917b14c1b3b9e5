// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/steel-estimate/pkg/constants"
)

// IsPositive checks if a value is positive (greater than a cent)
func IsPositive(val float64) bool {
	return val > constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Clamp bounds value to [lo, hi]. NaN clamps to lo.
func Clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// NonNegative returns 0 for negative, NaN or infinite inputs.
func NonNegative(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}

// CeilTons rounds a tonnage up to the next whole ton.
func CeilTons(tons float64) float64 {
	tons = NonNegative(tons)
	return math.Ceil(tons - 1e-9)
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
