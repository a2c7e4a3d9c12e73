// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/validation"
)

var (
	// ErrUnknownDevice is returned when the backend does not know the device key.
	ErrUnknownDevice = errors.New("follow: unknown device")

	// ErrReportNotFound is returned by Report when the id does not exist.
	ErrReportNotFound = errors.New("follow: report not found")

	// ErrRateLimited is returned after every 429 retry was used up.
	ErrRateLimited = errors.New("follow: rate limited")
)

// maxErrorBodySize limits how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// ReportSource reads devices and reports from the follow backend.
//
// Implemented by Client for direct access and by CircuitBreakerClient for
// production use. Trackers depend on this interface so tests can supply
// canned reports.
type ReportSource interface {
	// Device looks up a device by key. Returns ErrUnknownDevice on 404.
	Device(ctx context.Context, key string) (*models.Device, error)

	// Count returns the number of reports strictly between since and until.
	// Zero times leave the bound open.
	Count(ctx context.Context, key string, since, until time.Time) (int, error)

	// Reports lists reports matching params. Invalid reports are dropped.
	Reports(ctx context.Context, key string, params ReportParams) ([]models.Report, error)

	// Report fetches a single report by id.
	Report(ctx context.Context, key, id string) (*models.Report, error)
}

var (
	_ ReportSource = (*Client)(nil)
	_ ReportSource = (*CircuitBreakerClient)(nil)
)

// Client talks to the follow backend over HTTP.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter // nil disables pacing
	maxRetries     int           // Maximum retries for rate limiting
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// NewClient creates a client from the upstream configuration.
//
// The client is configured with:
//   - the configured HTTP timeout (15 seconds by default)
//   - a shared token bucket of RequestsPerSecond with Burst
//   - 5 maximum retries for HTTP 429, starting at 1 second
func NewClient(cfg *config.UpstreamConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Device looks up the device registered under key.
func (c *Client) Device(ctx context.Context, key string) (*models.Device, error) {
	var device models.Device
	if err := c.get(ctx, "device", "/devices/"+url.PathEscape(key), nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// Count returns how many reports the device has strictly between since and until.
func (c *Client) Count(ctx context.Context, key string, since, until time.Time) (int, error) {
	var count models.ReportCount
	if err := c.get(ctx, "count", reportsPath(key)+"/count", rangeQuery(since, until), &count); err != nil {
		return 0, err
	}
	return count.Count, nil
}

// Reports lists the device's reports. Reports failing validation are
// logged and skipped.
func (c *Client) Reports(ctx context.Context, key string, params ReportParams) ([]models.Report, error) {
	var raw []models.Report
	if err := c.get(ctx, "reports", reportsPath(key), params.query(), &raw); err != nil {
		return nil, err
	}

	reports := raw[:0]
	for i := range raw {
		if verr := validation.ValidateStruct(&raw[i]); verr != nil {
			for _, fe := range verr.Errors() {
				metrics.UpstreamReportsRejected.WithLabelValues(fe.Field).Inc()
			}
			logging.Ctx(ctx).Warn().
				Str("report_id", raw[i].ID).
				Str("reason", verr.Error()).
				Msg("Dropping invalid report")
			continue
		}
		reports = append(reports, raw[i])
	}
	metrics.UpstreamReportsFetched.Add(float64(len(reports)))
	return reports, nil
}

// Report fetches one report by id.
func (c *Client) Report(ctx context.Context, key, id string) (*models.Report, error) {
	var report models.Report
	err := c.get(ctx, "report", reportsPath(key)+"/"+url.PathEscape(id), nil, &report)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&report); verr != nil {
		return nil, fmt.Errorf("invalid report %s: %w", id, verr)
	}
	return &report, nil
}

func reportsPath(key string) string {
	return "/api/v1/devices/" + url.PathEscape(key) + "/reports"
}

// get performs one GET against the backend and decodes a 200 response into result.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, result interface{}) error {
	start := time.Now()
	err := c.doGet(ctx, operation, path, query, result)
	metrics.RecordUpstreamRequest(operation, resultLabel(err), time.Since(start))
	return err
}

func (c *Client) doGet(ctx context.Context, operation, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("failed to make %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		if operation == "report" {
			// An unknown key and an unknown id both answer 404 here.
			return ErrReportNotFound
		}
		return ErrUnknownDevice
	default:
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", operation, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// doRequestWithRateLimit performs an HTTP GET, waiting on the client-side
// limiter first and retrying HTTP 429 with exponential backoff (1s, 2s, 4s,
// 8s, 16s). A Retry-After header in seconds overrides the computed delay.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w after %d retries (HTTP 429)", ErrRateLimited, c.maxRetries)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		logging.Ctx(ctx).Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Follow API rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// resultLabel classifies an upstream error for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnknownDevice), errors.Is(err, ErrReportNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
