// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package api serves the follow HTTP API on a chi router.
//
// Every JSON response uses the models.APIResponse envelope:
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}
//
// Device endpoints start following a device on first use; the tracker
// manager polls the upstream backend in the background and the websocket
// hub pushes fresh segments when a device's trips change. Rendered device
// payloads are cached by device, mode and store version.
//
// Middleware order: request ID, real IP, access log, panic recovery, CORS,
// Prometheus, then per-group security headers, httprate limits and gzip.
package api
