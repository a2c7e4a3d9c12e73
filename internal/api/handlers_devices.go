// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
	"github.com/tomtom215/follow/internal/tracker"
	"github.com/tomtom215/follow/internal/validation"
	ws "github.com/tomtom215/follow/internal/websocket"
)

// maxHorizonBody bounds PUT /horizon bodies.
const maxHorizonBody = 1 << 10

// followFromPath validates the {key} path parameter and starts or reuses
// its tracker. On failure the response has been written and ok is false.
func (h *Handler) followFromPath(w http.ResponseWriter, r *http.Request) (t *tracker.Tracker, ok bool) {
	key := chi.URLParam(r, "key")
	if verr := validation.ValidateDeviceKey(key); verr != nil {
		respondAPIError(w, r, http.StatusBadRequest, verr.ToAPIError(), nil)
		return nil, false
	}

	t, err := h.devices.Follow(r.Context(), key)
	if err != nil {
		respondFollowError(w, r, key, err)
		return nil, false
	}
	return t, true
}

// modeFromQuery parses ?mode=, defaulting to the time mode.
func modeFromQuery(w http.ResponseWriter, r *http.Request) (track.Mode, bool) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		return track.ModeAge, true
	}
	mode, err := track.ParseMode(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return "", false
	}
	return mode, true
}

// DeviceSegments follows the device and returns its trips as colored
// segments. The first request for a device may return no trips while the
// initial fetch runs; websocket clients receive the data once it lands.
func (h *Handler) DeviceSegments(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeFromQuery(w, r)
	if !ok {
		return
	}
	t, ok := h.followFromPath(w, r)
	if !ok {
		return
	}

	start := time.Now()
	segments, cached := h.deviceSegments(t, mode)
	respondData(w, r, http.StatusOK, segments, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      cached,
	})
}

// DeviceStatus returns the tracker state of the device.
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.followFromPath(w, r)
	if !ok {
		return
	}
	respondData(w, r, http.StatusOK, t.Status(), models.Metadata{})
}

// DeviceHorizon changes how far back the device's reports are kept.
// Narrowing prunes at once; widening refetches the wider range.
func (h *Handler) DeviceHorizon(w http.ResponseWriter, r *http.Request) {
	var req models.HorizonRequest
	if status, apiErr := decodeJSON(w, r, maxHorizonBody, &req); apiErr != nil {
		respondAPIError(w, r, status, apiErr, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	t, ok := h.followFromPath(w, r)
	if !ok {
		return
	}

	horizon := time.Duration(req.PruneThresholdMS) * time.Millisecond
	t.SetHorizon(horizon)
	h.invalidateDevice(t.Key())

	logging.Ctx(logging.ContextWithDevice(r.Context(), t.Key())).Info().
		Dur("horizon", horizon).
		Msg("Pruning horizon changed")

	respondData(w, r, http.StatusOK, t.Status(), models.Metadata{})
}

// DeviceWebSocket upgrades to a websocket that receives the device's
// segments now and after every change. Clients switch mode by sending
// {"type":"mode","data":"speed"}.
func (h *Handler) DeviceWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}
	mode, ok := modeFromQuery(w, r)
	if !ok {
		return
	}
	t, ok := h.followFromPath(w, r)
	if !ok {
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, t.Key(), mode)
	if !h.wsHub.Join(client) {
		logging.Ctx(r.Context()).Debug().Str("device", t.Key()).Msg("WebSocket hub stopped, closing connection")
		_ = conn.Close()
		return
	}
	client.Start()
}
