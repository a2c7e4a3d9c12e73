// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

/*
Package websocket pushes live segment updates to browsers.

Each connection follows one device in one coloring mode. When the tracker
manager reports that a device's trips changed, the hub renders the device
once per mode in use and sends the result to every subscriber:

	{"type": "segments", "data": {"device": "...", "mode": "speed", "trips": [...]}}

Key Components:

  - Hub: owns the client set, a per-device subscriber count and the
    render-and-push loop (RunWithContext, supervised by suture)
  - Client: one connection with a readPump and a writePump goroutine
  - Renderer: callback that builds a DeviceSegments payload

Clients may send:

	{"type": "ping"}                  answered with {"type": "pong"}
	{"type": "mode", "data": "speed"} switches mode and re-sends segments

A client whose send buffer fills up is dropped rather than stalling the
hub. Server pings every 54 seconds keep idle connections open through
proxies.
*/
package websocket
