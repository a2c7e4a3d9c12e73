// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package trip groups a device's location reports into trips and keeps the
// per-device report window that the map renders.
//
// A new trip starts whenever two consecutive reports are at least the split
// gap apart (two minutes by default). Reports older than the pruning horizon
// are dropped by Store.Prune.
package trip

import (
	"time"

	"github.com/tomtom215/follow/internal/models"
)

// DefaultGap is the silence between reports that starts a new trip.
const DefaultGap = 2 * time.Minute

// Trip is a run of temporally contiguous reports in timestamp order.
type Trip struct {
	Reports []models.Report `json:"reports"`
}

// Start returns the first report's timestamp, or the zero time for an empty trip.
func (t *Trip) Start() time.Time {
	if len(t.Reports) == 0 {
		return time.Time{}
	}
	return t.Reports[0].Timestamp
}

// End returns the last report's timestamp, or the zero time for an empty trip.
func (t *Trip) End() time.Time {
	if len(t.Reports) == 0 {
		return time.Time{}
	}
	return t.Reports[len(t.Reports)-1].Timestamp
}

// Duration returns End minus Start.
func (t *Trip) Duration() time.Duration {
	return t.End().Sub(t.Start())
}

// Split groups reports into trips. Reports closer than gap to their
// predecessor join its trip. The input order is preserved.
func Split(reports []models.Report, gap time.Duration) []Trip {
	return appendReports(nil, reports, gap)
}

// appendReports extends trips with reports, continuing the last trip when
// the first new report is close enough to it.
func appendReports(trips []Trip, reports []models.Report, gap time.Duration) []Trip {
	for i := range reports {
		r := reports[i]
		if len(trips) == 0 {
			trips = append(trips, Trip{Reports: []models.Report{r}})
			continue
		}
		last := &trips[len(trips)-1]
		if len(last.Reports) == 0 || r.Timestamp.Sub(last.End()) >= gap {
			trips = append(trips, Trip{Reports: []models.Report{r}})
			continue
		}
		last.Reports = append(last.Reports, r)
	}
	return trips
}
