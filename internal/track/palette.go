// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package track

import (
	"fmt"
	"time"
)

// Sample is one location report as seen by the coloring pipeline.
type Sample struct {
	ID         string
	Timestamp  time.Time
	SpeedMps   float64
	ElevationM float64
	Lat        float64
	Lng        float64
}

// Context carries the time reference for age coloring.
type Context struct {
	Now            time.Time
	PruneThreshold time.Duration
}

// Palette maps every Mode to its Gradient. It is immutable once built and is
// shared by ColorFor and the consolidation threshold lookup.
type Palette struct {
	gradients map[Mode]Gradient
}

// DefaultPalette returns the calibrated gradients.
func DefaultPalette() Palette {
	return Palette{gradients: map[Mode]Gradient{
		ModeAge: {
			Description: "Time",
			Stops: []Stop{
				{L: 0.6, C: 0.25, H: 260},
				{L: 0.6, C: 0.25, H: 30},
			},
			Min:       Bound{Value: 0, Label: "Older"},
			Max:       Bound{Value: 1, Label: "Newer"},
			Threshold: 2.0,
		},
		ModeSpeed: {
			Description: "Speed",
			Stops: []Stop{
				{L: 0.8, C: 0.25, H: 260},
				{L: 0.8, C: 0.25, H: 145},
				{L: 0.8, C: 0.25, H: 30},
			},
			Min:       Bound{Value: 0, Label: "0 MPH"},
			Max:       Bound{Value: 44.704, Label: "100+ MPH"},
			Threshold: 10.0,
		},
		ModeElevation: {
			Description: "Elevation",
			Stops: []Stop{
				{L: 0.6, C: 0.25, H: 260},
				{L: 0.6, C: 0.25, H: 142},
				{L: 0.48, C: 0.21, H: 109},
				{L: 0.6, C: 0.21, H: 53},
				{L: 0.9, C: 0.25, H: 109},
			},
			Min:       Bound{Value: -30.48, Label: "-100 ft"},
			Max:       Bound{Value: 3048, Label: "10000+ ft"},
			Threshold: 2.0,
		},
	}}
}

// NewPalette validates gradients and returns a Palette over a private copy.
// Every mode must be present.
func NewPalette(gradients map[Mode]Gradient) (Palette, error) {
	copied := make(map[Mode]Gradient, len(gradients))
	for _, mode := range Modes() {
		g, ok := gradients[mode]
		if !ok {
			return Palette{}, fmt.Errorf("palette: missing gradient for mode %q", mode)
		}
		if err := g.Validate(); err != nil {
			return Palette{}, fmt.Errorf("palette: mode %q: %w", mode, err)
		}
		g.Stops = append([]Stop(nil), g.Stops...)
		copied[mode] = g
	}
	return Palette{gradients: copied}, nil
}

// Gradient returns the gradient for mode.
func (p Palette) Gradient(mode Mode) (Gradient, bool) {
	g, ok := p.gradients[mode]
	return g, ok
}

// Threshold returns the CIEDE2000 merge threshold for mode.
func (p Palette) Threshold(mode Mode) float64 {
	return p.mustGradient(mode).Threshold
}

// Value returns the normalized gradient position of sample under mode.
func (p Palette) Value(mode Mode, sample Sample, ctx Context) float64 {
	g := p.mustGradient(mode)
	switch mode {
	case ModeAge:
		return Normalize(AgeValue(sample.Timestamp, ctx), g.Min.Value, g.Max.Value)
	case ModeSpeed:
		return Normalize(sample.SpeedMps, g.Min.Value, g.Max.Value)
	default:
		return Normalize(sample.ElevationM, g.Min.Value, g.Max.Value)
	}
}

// ColorFor returns the #rrggbb color of sample under mode.
func (p Palette) ColorFor(mode Mode, sample Sample, ctx Context) string {
	return p.mustGradient(mode).Hex(p.Value(mode, sample, ctx))
}

// Colorize resolves a color for every sample, preserving order.
func (p Palette) Colorize(mode Mode, samples []Sample, ctx Context) []Point {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{
			ID:    s.ID,
			Coord: LatLng{Lat: s.Lat, Lng: s.Lng},
			Color: p.ColorFor(mode, s, ctx),
		}
	}
	return points
}

// Build runs the whole pipeline: color every sample, then consolidate with
// the mode's threshold.
func (p Palette) Build(mode Mode, samples []Sample, ctx Context) []Segment {
	return Consolidate(p.Colorize(mode, samples, ctx), p.Threshold(mode))
}

func (p Palette) mustGradient(mode Mode) Gradient {
	g, ok := p.gradients[mode]
	if !ok {
		panic(fmt.Sprintf("track: palette has no gradient for mode %q", mode))
	}
	return g
}
