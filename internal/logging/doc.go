// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

// Package logging wraps a process-wide zerolog logger for the follow server.
//
// Production output is JSON; development can switch to the console writer.
// Request and correlation IDs ride on the context and are attached by Ctx:
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("device", key).Msg("tracker started")
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("upstream unavailable")
//
// Environment variables (read by the config package):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//
// Always terminate an event with Msg or Send, otherwise nothing is written.
//
// The slog adapter lets the suture supervisor tree log through zerolog via
// sutureslog.
package logging
