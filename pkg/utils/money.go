package utils

import "math"

// ToMinorUnits converts a major-unit amount (e.g. 1234.56) to minor
// currency units (123456), rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToMinorUnitsPtr converts an optional major-unit amount, preserving nil.
func ToMinorUnitsPtr(amount *float64) *int64 {
	if amount == nil {
		return nil
	}
	v := ToMinorUnits(*amount)
	return &v
}
