// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package track

import (
	"math"
	"time"
)

// Normalize linearly maps value from [min, max] onto [0, 1], clamping at both
// ends. It never fails: NaN and -Inf clamp to 0, +Inf clamps to 1, and a
// degenerate domain (max <= min) maps everything at or above min to 1.
func Normalize(value, min, max float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, -1) {
		return 0
	}
	if math.IsInf(value, 1) {
		return 1
	}
	if !(max > min) {
		if value >= min {
			return 1
		}
		return 0
	}
	return clamp01((value - min) / (max - min))
}

// AgeValue returns 1 for a sample taken at ctx.Now and falls linearly to 0 for
// samples at or beyond the pruning horizon. Samples stamped in the future
// count as brand new. A non-positive horizon disables the age gradient and
// every sample reads as new.
func AgeValue(sampleTime time.Time, ctx Context) float64 {
	if ctx.PruneThreshold <= 0 {
		return 1
	}
	age := ctx.Now.Sub(sampleTime)
	if age < 0 {
		age = 0
	}
	ratio := clamp01(float64(age) / float64(ctx.PruneThreshold))
	return 1 - ratio
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
