// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package tracker

import (
	"time"

	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
	"github.com/tomtom215/follow/internal/trip"
)

// RenderTrips colors and consolidates each trip independently.
// Segments never span a trip gap.
func RenderTrips(palette track.Palette, mode track.Mode, trips []trip.Trip, ctx track.Context) []models.TripSegments {
	start := time.Now()
	out := make([]models.TripSegments, 0, len(trips))
	points, segments := 0, 0
	for i := range trips {
		t := &trips[i]
		if len(t.Reports) == 0 {
			continue
		}
		segs := palette.Build(mode, models.Samples(t.Reports), ctx)
		points += len(t.Reports)
		segments += len(segs)
		out = append(out, models.TripSegments{
			Start:    t.Start(),
			End:      t.End(),
			Reports:  len(t.Reports),
			Segments: segs,
		})
	}
	metrics.RecordTrackBuild(string(mode), points, segments, time.Since(start))
	return out
}

// Segments renders the tracker's current trips at now.
func (t *Tracker) Segments(palette track.Palette, mode track.Mode, now time.Time) models.DeviceSegments {
	horizon := t.store.Horizon()
	out := models.DeviceSegments{
		Device:         t.key,
		Mode:           mode,
		GeneratedAt:    now,
		PruneThreshold: horizon.Milliseconds(),
		Trips: RenderTrips(palette, mode, t.store.Trips(), track.Context{
			Now:            now,
			PruneThreshold: horizon,
		}),
	}
	if last, ok := t.store.Last(); ok {
		out.LastReport = &last
	}
	return out
}
