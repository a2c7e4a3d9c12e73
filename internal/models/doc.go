// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package models defines the data shared between the upstream client, the
// tracker and the HTTP API: location reports, response envelopes and the
// segment payloads served to map clients.
package models
