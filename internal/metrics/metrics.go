// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every series is prefixed with the namespace and grouped by subsystem.
const namespace = "follow"

const (
	subsystemHTTP      = "http"
	subsystemTrack     = "track"
	subsystemUpstream  = "upstream"
	subsystemBreaker   = "circuit_breaker"
	subsystemTracker   = "tracker"
	subsystemCache     = "cache"
	subsystemWebSocket = "websocket"
)

// HTTP API.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemHTTP,
		Name: "requests_total",
		Help: "HTTP requests served, by route pattern and status code.",
	}, []string{"method", "endpoint", "status_code"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystemHTTP,
		Name:    "request_duration_seconds",
		Help:    "Time to serve an HTTP request.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.5, 8),
	}, []string{"method", "endpoint"})

	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemHTTP,
		Name: "requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	APIRateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemHTTP,
		Name: "rate_limited_total",
		Help: "HTTP requests rejected by the rate limiter.",
	}, []string{"endpoint"})
)

// Coloring and consolidation.
var (
	SegmentsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemTrack,
		Name: "segments_built_total",
		Help: "Colored segments produced after consolidation.",
	}, []string{"mode"})

	PointsColored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemTrack,
		Name: "points_colored_total",
		Help: "Samples run through the color mapper.",
	}, []string{"mode"})

	ConsolidationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystemTrack,
		Name:    "build_duration_seconds",
		Help:    "Time to color and consolidate one track.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"mode"})
)

// Follow report API.
var (
	// result is success, not_found, rate_limited, canceled or error.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemUpstream,
		Name: "requests_total",
		Help: "Calls to the report API by outcome.",
	}, []string{"operation", "result"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystemUpstream,
		Name:    "request_duration_seconds",
		Help:    "Latency of report API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	UpstreamReportsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemUpstream,
		Name: "reports_fetched_total",
		Help: "Location reports accepted from the report API.",
	})

	UpstreamReportsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemUpstream,
		Name: "reports_rejected_total",
		Help: "Location reports dropped by validation, by first failing field.",
	}, []string{"field"})
)

// Circuit breaker around the report API.
var (
	// 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemBreaker,
		Name: "state",
		Help: "Breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	// result is success, failure or rejected.
	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemBreaker,
		Name: "calls_total",
		Help: "Calls passed through or refused by the breaker.",
	}, []string{"name", "result"})

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemBreaker,
		Name: "consecutive_failures",
		Help: "Failures since the last success.",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemBreaker,
		Name: "transitions_total",
		Help: "Breaker state changes.",
	}, []string{"name", "from_state", "to_state"})
)

// Device trackers.
var (
	TrackedDevices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemTracker,
		Name: "devices",
		Help: "Devices currently followed.",
	})

	// result is success, error or not_found.
	TrackerPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemTracker,
		Name: "polls_total",
		Help: "Poll cycles by outcome.",
	}, []string{"result"})

	TrackerReportsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemTracker,
		Name: "reports_stored",
		Help: "Reports held in memory across all devices.",
	})

	TrackerReportsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemTracker,
		Name: "reports_pruned_total",
		Help: "Reports dropped for falling behind the horizon.",
	})
)

// Segment cache, labeled with the cache name.
var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemCache,
		Name: "hits_total",
		Help: "Lookups answered from the cache.",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemCache,
		Name: "misses_total",
		Help: "Lookups that found nothing or an expired entry.",
	}, []string{"cache"})

	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemCache,
		Name: "entries",
		Help: "Entries held, expired ones not yet swept included.",
	}, []string{"cache"})
)

// Websocket push.
var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystemWebSocket,
		Name: "connections",
		Help: "Open websocket connections.",
	})

	WSMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemWebSocket,
		Name: "messages_sent_total",
		Help: "Messages queued to websocket clients.",
	})

	WSErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemWebSocket,
		Name: "errors_total",
		Help: "Websocket failures by kind.",
	}, []string{"error_type"})
)

// AppInfo is always 1; the labels carry the build.
var AppInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "build_info",
	Help:      "Build information of the running server.",
}, []string{"version", "go_version"})

// RecordAPIRequest counts a served request and observes its latency.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	delta := -1.0
	if inc {
		delta = 1
	}
	APIActiveRequests.Add(delta)
}

// RecordTrackBuild records one run of the coloring and consolidation pipeline.
func RecordTrackBuild(mode string, points, segments int, duration time.Duration) {
	PointsColored.WithLabelValues(mode).Add(float64(points))
	SegmentsBuilt.WithLabelValues(mode).Add(float64(segments))
	ConsolidationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one report API call.
func RecordUpstreamRequest(operation, result string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(operation, result).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordTrackerPoll(result string) {
	TrackerPolls.WithLabelValues(result).Inc()
}

// RecordCacheLookup counts a hit or a miss on the named cache.
func RecordCacheLookup(cache string, hit bool) {
	counter := CacheMisses
	if hit {
		counter = CacheHits
	}
	counter.WithLabelValues(cache).Inc()
}
