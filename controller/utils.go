package controller

import "math"

// limitValue returns the value capped between `maxPositive` and `-maxNegative`, alongside a boolean indicating if limits needed to be applied
func limitValue(value, maxPositive, maxNegative float64) (float64, bool) {
	if value > maxPositive {
		return maxPositive, true
	} else if value < -maxNegative {
		return -maxNegative, true
	} else {
		return value, false
	}
}

// capMagnitude returns `value` with its magnitude limited to |limit|. The sign of `value` is kept.
func capMagnitude(value, limit float64) float64 {
	limit = math.Abs(limit)
	if math.Abs(value) <= limit {
		return value
	}
	return math.Copysign(limit, value)
}
