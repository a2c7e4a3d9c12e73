// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

/*
Package follow is the client for the follow backend's report API.

The backend owns devices and their location reports; this service only
reads them. Endpoints used:

	GET /devices/{key}                                  device lookup
	GET /api/v1/devices/{key}/reports/count?since&until {"count": n}
	GET /api/v1/devices/{key}/reports?since&until&limit&order
	GET /api/v1/devices/{key}/reports/{id}

An unknown key answers 404 and surfaces as ErrUnknownDevice. Reports that
fail validation (out-of-range coordinates, negative speed) are dropped and
logged rather than failing the whole page.

Client paces requests with a token bucket and retries HTTP 429 with
exponential backoff. CircuitBreakerClient wraps a Client with
sony/gobreaker so a failing backend is not hammered by every tracker:

	client := follow.NewClient(&cfg.Upstream)
	var source follow.ReportSource = client
	if cfg.Upstream.CircuitBreakerEnabled {
	    source = follow.NewCircuitBreakerClient(client)
	}
	reports, err := source.Reports(ctx, key, follow.ReportParams{
	    Since: time.Now().Add(-2 * time.Hour),
	    Limit: 1000,
	    Order: follow.OrderAsc,
	})
*/
package follow
