// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package metrics holds the server's Prometheus collectors.
//
// Collectors register on the default registry through promauto; the router
// serves them at /metrics. Every name starts with follow_ followed by a
// subsystem:
//
//	http             requests_total, request_duration_seconds,
//	                 requests_in_flight, rate_limited_total
//	track            points_colored_total, segments_built_total,
//	                 build_duration_seconds (by mode)
//	upstream         requests_total (operation, result),
//	                 request_duration_seconds, reports_fetched_total,
//	                 reports_rejected_total
//	circuit_breaker  state, calls_total, consecutive_failures,
//	                 transitions_total
//	tracker          devices, polls_total, reports_stored,
//	                 reports_pruned_total
//	cache            hits_total, misses_total, entries (by cache name)
//	websocket        connections, messages_sent_total, errors_total
//
// follow_build_info carries the version and Go version as labels.
//
// The Record helpers bundle the updates that always happen together:
//
//	start := time.Now()
//	segments := palette.Build(mode, samples, ctx)
//	metrics.RecordTrackBuild(string(mode), len(samples), len(segments), time.Since(start))
package metrics
