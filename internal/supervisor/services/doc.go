// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package services adapts the follow server's components to suture.Service.
//
// Each wrapper takes a small interface instead of the concrete type, so
// this package does not import api, tracker or websocket:
//
//   - HTTPServerService: *http.Server, bound to its own listener so a
//     bind failure surfaces as a service error
//   - RunnerService: anything with RunWithContext, such as *websocket.Hub
//   - TrackerService: *tracker.Manager
package services
