// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

/*
Package middleware provides the HTTP middleware mounted on the chi router.

All middleware uses the standard func(http.Handler) http.Handler shape so it
composes with chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(time.Second))
	r.Use(middleware.PrometheusMetrics)

Components:

  - RequestID: accepts a sane X-Request-ID or generates a UUID, and seeds
    the logging context with request and correlation IDs.
  - AccessLog: one zerolog line per request; 5xx at error, slow at warn.
  - PrometheusMetrics: request count, duration and in-flight gauge, labeled
    with the chi route pattern so device keys stay out of label values.

The shared status recorder forwards http.Flusher and http.Hijacker, so the
websocket endpoint can sit behind the full stack. Compression is left to
chi's middleware.Compress on the routes that want it.
*/
package middleware
