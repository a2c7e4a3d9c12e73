// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/follow/internal/middleware"
)

// slowRequest is the access log threshold for warnings.
const slowRequest = time.Second

// NewRouter builds the HTTP surface.
//
//	GET  /api/v1/health, /health/live, /health/ready
//	GET  /api/v1/gradients, /api/v1/gradients/{mode}
//	POST /api/v1/segments
//	GET  /api/v1/devices/{key}/segments?mode=
//	GET  /api/v1/devices/{key}/status
//	PUT  /api/v1/devices/{key}/horizon
//	GET  /api/v1/devices/{key}/ws?mode=
//	GET  /api/v1/frontend_config
//	GET  /metrics
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(slowRequest))
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		// Websocket upgrades bypass compression and the default limit.
		r.With(mw.RateLimitCustom(RateLimitWebSocket)).Get("/devices/{key}/ws", h.DeviceWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Use(chimiddleware.Compress(5))

			r.Get("/gradients", h.Gradients)
			r.Get("/gradients/{mode}", h.Gradient)
			r.Get("/frontend_config", h.FrontendConfig)

			r.With(mw.RateLimitCustom(RateLimitBuild)).Post("/segments", h.BuildSegments)

			r.Route("/devices/{key}", func(r chi.Router) {
				r.Get("/segments", h.DeviceSegments)
				r.Get("/status", h.DeviceStatus)
				r.Put("/horizon", h.DeviceHorizon)
			})
		})
	})

	return r
}

// routeLabel returns the matched route pattern for metric labels.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

