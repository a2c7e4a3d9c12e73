// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package models

import (
	"time"

	"github.com/tomtom215/follow/internal/track"
)

// Report is one location report as served by the follow backend.
// Speeds are meters per second, altitude is meters above sea level.
type Report struct {
	ID              string     `json:"id" validate:"required,uuid"`
	Timestamp       time.Time  `json:"timestamp" validate:"required"`
	SubmitTimestamp *time.Time `json:"submit_timestamp,omitempty"`
	Latitude        float64    `json:"latitude" validate:"latitude"`
	Longitude       float64    `json:"longitude" validate:"longitude"`
	Altitude        float64    `json:"altitude"`
	Speed           float64    `json:"speed" validate:"gte=0"`
	Bearing         float64    `json:"bearing" validate:"gte=0,lte=360"`
	Accuracy        float64    `json:"accuracy" validate:"gte=0"`
}

// Sample converts the report to the form consumed by the track pipeline.
func (r *Report) Sample() track.Sample {
	return track.Sample{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		SpeedMps:   r.Speed,
		ElevationM: r.Altitude,
		Lat:        r.Latitude,
		Lng:        r.Longitude,
	}
}

// Samples converts reports in order.
func Samples(reports []Report) []track.Sample {
	out := make([]track.Sample, len(reports))
	for i := range reports {
		out[i] = reports[i].Sample()
	}
	return out
}

// Device is the upstream record for a device key.
type Device struct {
	ID     string `json:"id"`
	APIKey string `json:"api_key"`
}

// ReportCount is the upstream response to a count query.
type ReportCount struct {
	Count int `json:"count"`
}
