// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package track turns a time-ordered sequence of location samples into colored
// polyline segments for map rendering.
//
// The work happens in three pure stages:
//
//  1. Normalize maps a sample's age, speed or elevation onto [0, 1].
//  2. Gradient.At maps that position onto a multi-stop gradient interpolated
//     in OKLCH, so mid-tones stay vivid instead of turning muddy.
//  3. Consolidate merges consecutive colored points into the fewest segments
//     whose CIEDE2000 drift from the segment's anchor color stays within the
//     mode's threshold. Each segment is drawn with the OKLCH average of its
//     points.
//
// # Quick Start
//
//	palette := track.DefaultPalette()
//	ctx := track.Context{Now: time.Now(), PruneThreshold: 2 * time.Hour}
//	segments := palette.Build(track.ModeSpeed, samples, ctx)
//	for _, seg := range segments {
//	    drawPolyline(seg.Points, seg.Color)
//	}
//
// # Segment Boundaries
//
// The point that closes a segment also opens the next one, so adjacent
// polylines meet without a gap. A single sample yields one one-point segment
// and an empty input yields no segments.
//
// # Thread Safety
//
// A Palette is immutable after construction. Every function in this package
// is safe for concurrent use as long as callers do not share mutable sample
// slices.
package track
