package utils

// Clamp01 limits x to [0, 1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Saturate maps x linearly onto [0, 1], reaching 1 at limit. A non-positive limit yields 0.
func Saturate(x, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return Clamp01(x / limit)
}

// ClampInt limits x to [lo, hi]. When lo > hi, hi wins.
func ClampInt(x, lo, hi int) int {
	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	return x
}
