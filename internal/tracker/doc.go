// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package tracker follows devices by polling the report API.
//
// A Tracker owns one device: it confirms the key exists, fetches the report
// count and then pages through reports in ascending order, feeding them to a
// trip.Store. While caught up it polls every PollInterval; a full page is
// followed immediately by the next. Reports older than the pruning horizon
// are dropped every PruneInterval, and widening the horizon refetches from
// scratch.
//
// A Manager starts trackers on demand, caps how many run, stops the ones
// nobody has asked about for IdleTimeout and forwards change notifications
// to a single listener (the websocket hub).
package tracker
