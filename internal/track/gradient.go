// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package track

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// legendSteps is the number of intervals rendered by Gradient.CSS.
const legendSteps = 5

// Stop is one gradient stop in OKLCH: lightness in [0, 1], chroma >= 0 and
// hue in degrees.
type Stop struct {
	L float64 `json:"l" koanf:"l"`
	C float64 `json:"c" koanf:"c"`
	H float64 `json:"h" koanf:"h"`
}

// Color converts the stop to a colorful.Color. The result may lie outside the
// sRGB gamut; call Clamped before formatting it.
func (s Stop) Color() colorful.Color {
	return colorful.OkLch(s.L, s.C, s.H)
}

// Bound is one end of a gradient's raw domain together with its legend label.
type Bound struct {
	Value float64 `json:"value" koanf:"value"`
	Label string  `json:"label" koanf:"label"`
}

// Gradient is the static coloring configuration for one mode.
type Gradient struct {
	Description string  `json:"description"`
	Stops       []Stop  `json:"stops"`
	Min         Bound   `json:"min"`
	Max         Bound   `json:"max"`
	Threshold   float64 `json:"threshold"`
}

// Validate reports whether the gradient can be used for coloring.
func (g Gradient) Validate() error {
	if len(g.Stops) < 2 {
		return fmt.Errorf("gradient needs at least 2 stops, got %d", len(g.Stops))
	}
	for i, s := range g.Stops {
		if !finite(s.L) || !finite(s.C) || !finite(s.H) {
			return fmt.Errorf("stop %d is not finite", i)
		}
		if s.L < 0 || s.L > 1 {
			return fmt.Errorf("stop %d lightness %.3f outside [0, 1]", i, s.L)
		}
		if s.C < 0 {
			return fmt.Errorf("stop %d chroma %.3f is negative", i, s.C)
		}
	}
	if !finite(g.Min.Value) || !finite(g.Max.Value) {
		return errors.New("domain bounds must be finite")
	}
	if g.Min.Value >= g.Max.Value {
		return fmt.Errorf("domain min %.3f must be below max %.3f", g.Min.Value, g.Max.Value)
	}
	if !finite(g.Threshold) || g.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", g.Threshold)
	}
	return nil
}

// At returns the gradient color at normalized position t. Out-of-range t is
// clamped, so At(0) and At(1) are exactly the first and last stops.
func (g Gradient) At(t float64) colorful.Color {
	return g.lch(t).Color()
}

// Hex returns the sRGB hex string of the gradient color at t, clipped to the
// displayable gamut.
func (g Gradient) Hex(t float64) string {
	return g.At(t).Clamped().Hex()
}

// lch interpolates the stops in OKLCH along the shortest hue arc. For N stops,
// t selects the segment floor(t*(N-1)).
func (g Gradient) lch(t float64) Stop {
	t = clamp01(t)
	last := len(g.Stops) - 1
	if t == 0 {
		return g.Stops[0]
	}
	if t == 1 {
		return g.Stops[last]
	}
	pos := t * float64(last)
	idx := int(math.Floor(pos))
	if idx >= last {
		return g.Stops[last]
	}
	f := pos - float64(idx)
	a, b := g.Stops[idx], g.Stops[idx+1]
	return Stop{
		L: a.L + (b.L-a.L)*f,
		C: a.C + (b.C-a.C)*f,
		H: lerpHue(a.H, b.H, f),
	}
}

// Colors returns steps evenly spaced hex colors from the first to the last
// stop, for rendering legends.
func (g Gradient) Colors(steps int) []string {
	if steps <= 0 {
		return nil
	}
	if steps == 1 {
		return []string{g.Hex(0)}
	}
	out := make([]string, steps)
	for i := range out {
		out[i] = g.Hex(float64(i) / float64(steps-1))
	}
	return out
}

// CSS renders the gradient as a CSS linear-gradient with a stop every 20%.
func (g Gradient) CSS() string {
	parts := make([]string, 0, legendSteps+1)
	for i := 0; i <= legendSteps; i++ {
		t := float64(i) / legendSteps
		s := g.lch(t)
		parts = append(parts, fmt.Sprintf("oklch(%.3f %.3f %.1f) %d%%", s.L, s.C, s.H, i*100/legendSteps))
	}
	return "linear-gradient(to right, " + strings.Join(parts, ", ") + ")"
}

// lerpHue interpolates between two hues in degrees along the shorter arc and
// returns a value in [0, 360).
func lerpHue(a, b, f float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	h := math.Mod(a+d*f, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
