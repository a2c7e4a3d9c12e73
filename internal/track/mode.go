// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package track

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned by ParseMode for names outside the closed set.
var ErrUnknownMode = errors.New("unknown coloring mode")

// Mode selects which scalar drives the track gradient.
type Mode string

const (
	// ModeAge colors by how recent a sample is relative to the pruning horizon.
	// The wire name is "time" for compatibility with existing clients.
	ModeAge Mode = "time"

	// ModeSpeed colors by ground speed in meters per second.
	ModeSpeed Mode = "speed"

	// ModeElevation colors by altitude in meters.
	ModeElevation Mode = "elevation"
)

// Modes lists every coloring mode in display order.
func Modes() []Mode {
	return []Mode{ModeAge, ModeSpeed, ModeElevation}
}

// ParseMode converts a query or config value to a Mode.
// "age" is accepted as an alias of "time".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time", "age":
		return ModeAge, nil
	case "speed":
		return ModeSpeed, nil
	case "elevation", "altitude":
		return ModeElevation, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}
