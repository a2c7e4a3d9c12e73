// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package track

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// achromaticChroma is the OKLCH chroma below which hue is meaningless.
const achromaticChroma = 1e-4

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a sample paired with its resolved color.
type Point struct {
	ID    string
	Coord LatLng
	Color string
}

// Segment is a run of consecutive points drawn with one color.
type Segment struct {
	Color     string   `json:"color"`
	Points    []LatLng `json:"points"`
	PathStart string   `json:"path_start"`
	PathEnd   string   `json:"path_end"`
}

// Consolidate merges consecutive points into segments. Each point is compared
// with the running segment's representative color (the raw color of the
// segment's first point). When the CIEDE2000 distance exceeds threshold the
// point closes the current segment and opens the next one, so boundary points
// appear in both. Finished segments take the OKLCH average of their colors.
//
// Colors must be hex strings produced by ColorFor; anything else panics.
func Consolidate(points []Point, threshold float64) []Segment {
	if len(points) == 0 {
		return []Segment{}
	}

	parsed := make([]colorful.Color, len(points))
	for i, p := range points {
		parsed[i] = mustParse(p.Color)
	}

	segments := make([]Segment, 0, 1)
	start := 0
	rep := parsed[0]
	for i := 1; i < len(points); i++ {
		if deltaE(rep, parsed[i]) > threshold {
			segments = append(segments, newSegment(points[start:i+1], parsed[start:i+1]))
			start = i
			rep = parsed[i]
		}
	}
	return append(segments, newSegment(points[start:], parsed[start:]))
}

func newSegment(points []Point, colors []colorful.Color) Segment {
	coords := make([]LatLng, len(points))
	for i, p := range points {
		coords[i] = p.Coord
	}
	color := points[0].Color
	if len(points) > 1 {
		color = averageOkLch(colors).Clamped().Hex()
	}
	return Segment{
		Color:     color,
		Points:    coords,
		PathStart: points[0].ID,
		PathEnd:   points[len(points)-1].ID,
	}
}

// DeltaE returns the CIEDE2000 distance between two hex colors on the usual
// 0-100 scale.
func DeltaE(a, b string) float64 {
	return deltaE(mustParse(a), mustParse(b))
}

func deltaE(a, b colorful.Color) float64 {
	// go-colorful reports CIEDE2000 scaled by 1/100.
	return a.DistanceCIEDE2000(b) * 100
}

// Average returns the OKLCH average of hex colors: arithmetic mean of
// lightness and chroma, circular mean of hue over the chromatic colors.
// A single color is returned unchanged.
func Average(colors []string) string {
	if len(colors) == 0 {
		panic("track: average of no colors")
	}
	if len(colors) == 1 {
		mustParse(colors[0])
		return colors[0]
	}
	parsed := make([]colorful.Color, len(colors))
	for i, c := range colors {
		parsed[i] = mustParse(c)
	}
	return averageOkLch(parsed).Clamped().Hex()
}

func averageOkLch(colors []colorful.Color) colorful.Color {
	var sumL, sumC, sumSin, sumCos float64
	chromatic := 0
	for _, c := range colors {
		l, ch, h := c.OkLch()
		sumL += l
		sumC += ch
		if ch < achromaticChroma {
			continue
		}
		rad := h * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
		chromatic++
	}
	n := float64(len(colors))
	hue := 0.0
	if chromatic > 0 {
		hue = math.Atan2(sumSin, sumCos) * 180 / math.Pi
		if hue < 0 {
			hue += 360
		}
	}
	return colorful.OkLch(sumL/n, sumC/n, hue)
}

func mustParse(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("track: malformed color %q: %v", s, err))
	}
	return c
}
