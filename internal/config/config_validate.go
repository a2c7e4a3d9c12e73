// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/follow/internal/logging"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateTrack(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if err := validateHTTPURL(c.Upstream.URL, "FOLLOW_API_URL"); err != nil {
		return err
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("FOLLOW_API_TIMEOUT must be positive, got %v", c.Upstream.Timeout)
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("FOLLOW_API_REQUESTS_PER_SECOND must not be negative, got %v", c.Upstream.RequestsPerSecond)
	}
	if c.Upstream.RequestsPerSecond > 0 && c.Upstream.Burst < 1 {
		return fmt.Errorf("FOLLOW_API_BURST must be at least 1 when pacing is enabled, got %d", c.Upstream.Burst)
	}
	return nil
}

func (c *Config) validateTracker() error {
	t := c.Tracker
	if t.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("POLL_INTERVAL must be at least 100ms, got %v", t.PollInterval)
	}
	if t.PruneInterval <= 0 {
		return fmt.Errorf("PRUNE_INTERVAL must be positive, got %v", t.PruneInterval)
	}
	if t.PageSize < 1 || t.PageSize > 10000 {
		return fmt.Errorf("POLL_PAGE_SIZE must be between 1 and 10000, got %d", t.PageSize)
	}
	if t.PruneThreshold <= 0 {
		return fmt.Errorf("PRUNE_THRESHOLD must be positive, got %v", t.PruneThreshold)
	}
	if t.TripSplitGap <= 0 {
		return fmt.Errorf("TRIP_SPLIT_GAP must be positive, got %v", t.TripSplitGap)
	}
	if t.MaxDevices < 1 {
		return fmt.Errorf("MAX_DEVICES must be at least 1, got %d", t.MaxDevices)
	}
	if t.IdleTimeout <= 0 {
		return fmt.Errorf("DEVICE_IDLE_TIMEOUT must be positive, got %v", t.IdleTimeout)
	}
	return nil
}

func (c *Config) validateTrack() error {
	for name, v := range map[string]float64{
		"AGE_THRESHOLD":       c.Track.AgeThreshold,
		"SPEED_THRESHOLD":     c.Track.SpeedThreshold,
		"ELEVATION_THRESHOLD": c.Track.ElevationThreshold,
	} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%s must be in (0, 100], got %v", name, v)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxSamples < 1 {
		return fmt.Errorf("API_MAX_SAMPLES must be at least 1, got %d", c.API.MaxSamples)
	}
	if c.API.CacheTTL < 0 {
		return fmt.Errorf("API_CACHE_TTL must not be negative, got %v", c.API.CacheTTL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS must not contain * when ENVIRONMENT=production")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// validateHTTPURL accepts http(s) URLs with a host and no query string.
// A path prefix is allowed so the backend can live behind a reverse proxy.
func validateHTTPURL(rawURL, fieldName string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, u.RawQuery)
	}
	return nil
}
