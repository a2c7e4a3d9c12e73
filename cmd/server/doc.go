// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

/*
Package main runs the follow server.

The server follows devices on a location report backend and serves their
recent trails as colored track segments, over REST and websocket.

# Process Layout

	follow
	├── tracking-layer
	│   ├── tracker-manager  (one poller per followed device)
	│   └── websocket-hub    (pushes re-rendered segments)
	└── api-layer
	    └── http-server

Devices are followed lazily: the first request for a key starts polling,
and a device nobody asks about or subscribes to is dropped after the idle
timeout.

# Configuration

Configuration comes from defaults, an optional YAML file and environment
variables, in that order. See package config for the full list.

	FOLLOW_API_URL=https://follow.example.com \
	HTTP_PORT=8080 \
	LOG_LEVEL=debug \
	./follow-server

Changing logging.level in the config file takes effect without a restart.

# Signals

SIGINT and SIGTERM stop the tree. In-flight requests get
server.shutdown_timeout to finish; the process exits non-zero if a service
misses it.
*/
package main
