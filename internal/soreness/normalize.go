// ABOUTME: Soreness normalizer: current soreness relative to the recorded maximum.
// ABOUTME: Always returns a value in [0, 1]; a missing baseline reads as fully recovered.
package soreness

import "math"

// Normalize returns min(current/max, 1). A max that is zero, negative, or NaN
// means no soreness has ever been observed, so the result is 0.
func Normalize(current, max float64) float64 {
	if !(max > 0) || math.IsNaN(current) || current <= 0 {
		return 0
	}
	return clamp01(current / max)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
