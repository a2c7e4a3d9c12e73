// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package models

import (
	"time"

	"github.com/tomtom215/follow/internal/track"
)

// TripSegments is one trip rendered as colored polyline segments.
type TripSegments struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Reports  int             `json:"reports"`
	Segments []track.Segment `json:"segments"`
}

// DeviceSegments is the payload for a followed device, served over HTTP and
// pushed over the websocket.
type DeviceSegments struct {
	Device         string         `json:"device"`
	Mode           track.Mode     `json:"mode"`
	GeneratedAt    time.Time      `json:"generated_at"`
	PruneThreshold int64          `json:"prune_threshold_ms"`
	LastReport     *Report        `json:"last_report,omitempty"`
	Trips          []TripSegments `json:"trips"`
}

// SegmentsRequest is the body of POST /api/v1/segments.
type SegmentsRequest struct {
	Mode             string          `json:"mode" validate:"required,oneof=time age speed elevation altitude"`
	Now              *time.Time      `json:"now,omitempty"`
	PruneThresholdMS int64           `json:"prune_threshold_ms" validate:"gte=0,lte=31536000000"`
	Samples          []SampleRequest `json:"samples" validate:"required,dive"`
}

// SampleRequest is one sample in a SegmentsRequest.
type SampleRequest struct {
	ID        string    `json:"id" validate:"required,max=128"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Latitude  float64   `json:"latitude" validate:"latitude"`
	Longitude float64   `json:"longitude" validate:"longitude"`
	Speed     float64   `json:"speed"`
	Altitude  float64   `json:"altitude"`
}

// Report converts the sample to a Report so it can be split into trips.
func (s *SampleRequest) Report() Report {
	return Report{
		ID:        s.ID,
		Timestamp: s.Timestamp,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Speed:     s.Speed,
		Altitude:  s.Altitude,
	}
}

// SegmentsResponse is the result of POST /api/v1/segments.
type SegmentsResponse struct {
	Mode      track.Mode     `json:"mode"`
	Threshold float64        `json:"threshold"`
	Trips     []TripSegments `json:"trips"`
}

// GradientInfo describes one mode's gradient for legends.
type GradientInfo struct {
	Mode        track.Mode   `json:"mode"`
	Description string       `json:"description"`
	Min         track.Bound  `json:"min"`
	Max         track.Bound  `json:"max"`
	Threshold   float64      `json:"threshold"`
	Stops       []track.Stop `json:"stops"`
	Colors      []string     `json:"colors"`
	CSS         string       `json:"css"`
}

// MaxPruneThresholdMS caps requested horizons at one year, well inside
// what time.Duration can hold in milliseconds.
const MaxPruneThresholdMS = 365 * 24 * 60 * 60 * 1000

// HorizonRequest is the body of PUT /api/v1/devices/{key}/horizon.
type HorizonRequest struct {
	PruneThresholdMS int64 `json:"prune_threshold_ms" validate:"required,gt=0,lte=31536000000"`
}

// TrackerStatus reports a device tracker's progress.
type TrackerStatus struct {
	Device         string     `json:"device"`
	State          string     `json:"state"`
	TotalReports   int        `json:"total_reports"`
	FetchedReports int        `json:"fetched_reports"`
	Trips          int        `json:"trips"`
	PruneThreshold int64      `json:"prune_threshold_ms"`
	LastPoll       *time.Time `json:"last_poll,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastReport     *Report    `json:"last_report,omitempty"`
}

// FrontendConfig is served to the browser map client.
type FrontendConfig struct {
	MapsAPIKey string `json:"maps_api_key"`
}
