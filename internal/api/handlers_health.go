// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/follow/internal/models"
)

const upstreamOpen = "open"

// Health reports overall service status. The upstream field carries the
// circuit breaker state; an open breaker marks the service degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	upstream := ""
	if h.upstream != nil {
		upstream = h.upstream.State()
		if upstream == upstreamOpen {
			status = "degraded"
		}
	}
	if !h.devices.Running() {
		status = "degraded"
	}

	respondData(w, r, http.StatusOK, models.HealthStatus{
		Status:         status,
		Version:        h.version,
		Uptime:         time.Since(h.startTime).Seconds(),
		TrackedDevices: h.devices.Len(),
		Upstream:       upstream,
		CacheHitRate:   h.cache.HitRate(),
		Timestamp:      time.Now(),
	}, models.Metadata{})
}

// HealthLive answers 200 whenever the process can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady answers 503 until the tracker manager runs, and while the
// upstream breaker is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"tracker":  h.devices.Running(),
		"upstream": h.upstream == nil || h.upstream.State() != upstreamOpen,
	}

	ready := true
	for _, ok := range checks {
		ready = ready && ok
	}

	statusCode := http.StatusOK
	state := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		state = "not_ready"
	}

	respondData(w, r, statusCode, map[string]interface{}{
		"status": state,
		"checks": checks,
	}, models.Metadata{})
}
