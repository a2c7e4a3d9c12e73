// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package config loads server configuration with koanf.
//
// Sources are layered, later ones winning:
//
//  1. defaults compiled into defaultConfig
//  2. a YAML file from CONFIG_PATH, ./config.yaml or /etc/follow/config.yaml
//  3. environment variables
//
// Only environment variables listed in envMappings are read, so unrelated
// variables never leak into the config. Durations accept Go syntax ("5s",
// "2h"), and CORS_ORIGINS is a comma-separated list.
//
// Commonly used variables:
//
//	HTTP_PORT         listen port (8080)
//	FOLLOW_API_URL    base URL of the location report backend
//	POLL_INTERVAL     per-device poll period (5s)
//	PRUNE_THRESHOLD   how long reports stay on the map (2h)
//	TRIP_SPLIT_GAP    silence that starts a new trip (2m)
//	MAPS_API_KEY      key handed to the browser map widget
//	LOG_LEVEL         debug, info, warn, error
//
// Example YAML:
//
//	upstream:
//	  url: https://follow.example.com
//	tracker:
//	  prune_threshold: 6h
//	track:
//	  speed_threshold: 8
package config
