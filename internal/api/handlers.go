// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/follow/internal/cache"
	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/follow"
	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
	"github.com/tomtom215/follow/internal/tracker"
	ws "github.com/tomtom215/follow/internal/websocket"
)

// segmentsCacheName labels the segment cache in metrics.
const segmentsCacheName = "segments"

// ageBucket is how long a rendered AGE-mode payload stays valid. AGE colors
// depend on the current time, so cache keys include the bucket number.
const ageBucket = 5 * time.Second

// Follower is the part of tracker.Manager the handlers use.
type Follower interface {
	Follow(ctx context.Context, key string) (*tracker.Tracker, error)
	Get(key string) (*tracker.Tracker, bool)
	Len() int
	Running() bool
}

// UpstreamState reports the circuit breaker state of the upstream client
// ("closed", "half-open" or "open").
type UpstreamState interface {
	State() string
}

// Handler serves the follow API.
//
// Files:
//   - handlers.go: Handler, constructor, shared helpers
//   - handlers_health.go: health and probes
//   - handlers_gradients.go: legend data
//   - handlers_segments.go: stateless segment building
//   - handlers_devices.go: followed devices, horizon, websocket
type Handler struct {
	config    *config.Config
	palette   track.Palette
	devices   Follower
	upstream  UpstreamState
	wsHub     *ws.Hub
	cache     *cache.Cache[models.DeviceSegments]
	startTime time.Time
	version   string
	now       func() time.Time
}

// NewHandler wires the handlers. upstream may be nil, in which case health
// omits the upstream state.
func NewHandler(cfg *config.Config, palette track.Palette, devices Follower, upstream UpstreamState, version string) *Handler {
	return &Handler{
		config:    cfg,
		palette:   palette,
		devices:   devices,
		upstream:  upstream,
		cache:     cache.New[models.DeviceSegments](segmentsCacheName, cfg.API.CacheTTL, cfg.Tracker.MaxDevices*len(track.Modes())*4),
		startTime: time.Now(),
		version:   version,
		now:       time.Now,
	}
}

// SetHub attaches the websocket hub. The hub renders through
// RenderDevice, so it is created after the handler. Without a hub the
// websocket endpoint answers 503.
//
// Call once during startup.
func (h *Handler) SetHub(hub *ws.Hub) {
	h.wsHub = hub
}

// Close releases the segment cache.
func (h *Handler) Close() {
	h.cache.Close()
}

// RenderDevice renders a followed device for websocket pushes. It returns
// false when the device is not followed.
func (h *Handler) RenderDevice(key string, mode track.Mode) (models.DeviceSegments, bool) {
	t, ok := h.devices.Get(key)
	if !ok {
		return models.DeviceSegments{}, false
	}
	segments, _ := h.deviceSegments(t, mode)
	return segments, true
}

// deviceSegments returns the rendered payload for t in mode, from the cache
// when the store has not changed. The bool reports a cache hit.
func (h *Handler) deviceSegments(t *tracker.Tracker, mode track.Mode) (models.DeviceSegments, bool) {
	now := h.now()
	key := segmentsCacheKey(t.Key(), mode, t.Store().Version(), now)
	if segments, ok := h.cache.Get(key); ok {
		return segments, true
	}

	segments := t.Segments(h.palette, mode, now)
	h.cache.Set(key, segments)
	return segments, false
}

// invalidateDevice drops every cached payload of key.
func (h *Handler) invalidateDevice(key string) {
	h.cache.DeletePrefix(segmentsCachePrefix(key))
}

func segmentsCachePrefix(key string) string {
	return "device:" + key + ":"
}

func segmentsCacheKey(key string, mode track.Mode, version uint64, now time.Time) string {
	var bucket int64
	if mode == track.ModeAge {
		bucket = now.UnixNano() / int64(ageBucket)
	}
	return segmentsCachePrefix(key) + cache.Key(string(mode), struct {
		Version uint64 `json:"v"`
		Bucket  int64  `json:"b"`
	}{version, bucket})
}

// getUpgrader creates a websocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts origins listed in security.cors_origins.
// Browsers always send Origin on websocket handshakes, so a missing header
// is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// respondFollowError maps tracker and upstream failures to HTTP errors.
func respondFollowError(w http.ResponseWriter, r *http.Request, key string, err error) {
	switch {
	case errors.Is(err, follow.ErrUnknownDevice):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown device: "+key, nil)
	case errors.Is(err, tracker.ErrTooManyDevices):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "too many devices are being followed", err)
	case errors.Is(err, tracker.ErrNotRunning):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "tracker is shutting down", err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "location backend temporarily unavailable", err)
	case errors.Is(err, follow.ErrRateLimited):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "location backend is rate limiting requests", err)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		respondError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail, "location backend request failed", err)
	}
}
