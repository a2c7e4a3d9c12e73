// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
	"github.com/tomtom215/follow/internal/tracker"
	"github.com/tomtom215/follow/internal/trip"
)

// bytesPerSample bounds the request body relative to api.max_samples.
const bytesPerSample = 512

// BuildSegments colors and consolidates caller-supplied samples without
// touching any tracker. Samples are ordered by timestamp, split into trips
// by tracker.trip_split_gap, and each trip is consolidated on its own.
//
// now defaults to the server clock and prune_threshold_ms to
// tracker.prune_threshold; both only affect the time mode.
func (h *Handler) BuildSegments(w http.ResponseWriter, r *http.Request) {
	maxSamples := h.config.API.MaxSamples
	var req models.SegmentsRequest
	if status, apiErr := decodeJSON(w, r, int64(maxSamples+1)*bytesPerSample, &req); apiErr != nil {
		respondAPIError(w, r, status, apiErr, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}
	if len(req.Samples) > maxSamples {
		respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
			fmt.Sprintf("at most %d samples per request, got %d", maxSamples, len(req.Samples)), nil)
		return
	}

	mode, err := track.ParseMode(req.Mode)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	ctx := track.Context{Now: h.now(), PruneThreshold: h.config.Tracker.PruneThreshold}
	if req.Now != nil {
		ctx.Now = *req.Now
	}
	if req.PruneThresholdMS > 0 {
		ctx.PruneThreshold = time.Duration(req.PruneThresholdMS) * time.Millisecond
	}

	reports := make([]models.Report, len(req.Samples))
	for i := range req.Samples {
		reports[i] = req.Samples[i].Report()
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})

	start := time.Now()
	trips := tracker.RenderTrips(h.palette, mode, trip.Split(reports, h.config.Tracker.TripSplitGap), ctx)

	respondData(w, r, http.StatusOK, models.SegmentsResponse{
		Mode:      mode,
		Threshold: h.palette.Threshold(mode),
		Trips:     trips,
	}, models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}
