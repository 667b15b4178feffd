package utils

import "math"

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//Clamp01 limits given value to the [0, 1] range
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

//ClampInt limits given value to the [lo, hi] range
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
