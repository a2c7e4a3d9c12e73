// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package cache provides the TTL cache in front of segment rendering.
//
// Rendering a device's trips colors every report and runs consolidation per
// trip, so the API keeps recent results keyed by device, mode and store
// version. Entries expire after the configured TTL; an optional cap evicts
// the entry closest to expiry. Cache is generic over its value type.
//
// Hits, misses and size are exported as follow_cache_hits_total,
// follow_cache_misses_total and follow_cache_entries, labeled with the
// cache name.
package cache
