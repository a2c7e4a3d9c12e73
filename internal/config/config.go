// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package config

import (
	"time"

	"github.com/tomtom215/follow/internal/track"
)

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Tracker  TrackerConfig  `koanf:"tracker"`
	Track    TrackConfig    `koanf:"track"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Frontend FrontendConfig `koanf:"frontend"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// UpstreamConfig describes the follow backend that owns the location reports.
type UpstreamConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond paces outgoing calls across all devices. Zero disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`
}

// TrackerConfig controls polling and trip bookkeeping per device.
type TrackerConfig struct {
	PollInterval   time.Duration `koanf:"poll_interval"`
	PruneInterval  time.Duration `koanf:"prune_interval"`
	PageSize       int           `koanf:"page_size"`
	PruneThreshold time.Duration `koanf:"prune_threshold"`
	TripSplitGap   time.Duration `koanf:"trip_split_gap"`
	MaxDevices     int           `koanf:"max_devices"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
}

// TrackConfig overrides the segment merge thresholds (CIEDE2000) per mode.
type TrackConfig struct {
	AgeThreshold       float64 `koanf:"age_threshold"`
	SpeedThreshold     float64 `koanf:"speed_threshold"`
	ElevationThreshold float64 `koanf:"elevation_threshold"`
}

// APIConfig holds HTTP API limits.
type APIConfig struct {
	MaxSamples int           `koanf:"max_samples"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// FrontendConfig holds values handed to the browser map client.
type FrontendConfig struct {
	MapsAPIKey string `koanf:"maps_api_key"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Palette returns the default track palette with this config's thresholds.
func (c *TrackConfig) Palette() (track.Palette, error) {
	defaults := track.DefaultPalette()
	overrides := map[track.Mode]float64{
		track.ModeAge:       c.AgeThreshold,
		track.ModeSpeed:     c.SpeedThreshold,
		track.ModeElevation: c.ElevationThreshold,
	}
	gradients := make(map[track.Mode]track.Gradient, len(overrides))
	for mode, threshold := range overrides {
		g, _ := defaults.Gradient(mode)
		if threshold > 0 {
			g.Threshold = threshold
		}
		gradients[mode] = g
	}
	return track.NewPalette(gradients)
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
