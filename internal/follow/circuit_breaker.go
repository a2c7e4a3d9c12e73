// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package follow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/models"
)

// CircuitBreakerName labels the breaker in logs and metrics.
const CircuitBreakerName = "follow-api"

// Breaker policy: trip at a 60% failure ratio once 10 calls were seen in
// the current one minute window, stay open for openTimeout, then let 3
// probes through.
const (
	tripMinRequests  = 10
	tripFailureRatio = 0.6
	probeRequests    = 3
	countWindow      = time.Minute
)

// CircuitBreakerClient guards a Client with a gobreaker circuit breaker.
// Unknown devices, missing reports and canceled contexts are answers
// rather than outages and never count against the backend.
type CircuitBreakerClient struct {
	client   *Client
	cb       *gobreaker.CircuitBreaker[any]
	name     string
	listener atomic.Pointer[func(state string)]
}

// NewCircuitBreakerClient wraps client with a two minute open timeout.
func NewCircuitBreakerClient(client *Client) *CircuitBreakerClient {
	return newCircuitBreakerClient(client, CircuitBreakerName, 2*time.Minute)
}

func newCircuitBreakerClient(client *Client, name string, openTimeout time.Duration) *CircuitBreakerClient {
	cbc := &CircuitBreakerClient{client: client, name: name}
	cbc.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:          name,
		MaxRequests:   probeRequests,
		Interval:      countWindow,
		Timeout:       openTimeout,
		ReadyToTrip:   cbc.readyToTrip,
		IsSuccessful:  isSuccessful,
		OnStateChange: cbc.transition,
	})

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateGauge(gobreaker.StateClosed))
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	return cbc
}

func (cbc *CircuitBreakerClient) readyToTrip(c gobreaker.Counts) bool {
	if c.Requests < tripMinRequests {
		return false
	}
	ratio := float64(c.TotalFailures) / float64(c.Requests)
	if ratio < tripFailureRatio {
		return false
	}
	logging.Warn().
		Str("breaker", cbc.name).
		Uint32("failures", c.TotalFailures).
		Uint32("requests", c.Requests).
		Msg("Upstream failing, opening circuit")
	return true
}

func (cbc *CircuitBreakerClient) transition(name string, from, to gobreaker.State) {
	logging.Info().
		Str("breaker", name).
		Str("from", stateName(from)).
		Str("to", stateName(to)).
		Msg("Circuit breaker state changed")

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateGauge(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, stateName(from), stateName(to)).Inc()
	if to == gobreaker.StateClosed {
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	}

	if fn := cbc.listener.Load(); fn != nil {
		(*fn)(stateName(to))
	}
}

// OnStateChange registers fn to receive the new state after every
// transition. fn runs on the request goroutine and must not block.
func (cbc *CircuitBreakerClient) OnStateChange(fn func(state string)) {
	cbc.listener.Store(&fn)
}

func isSuccessful(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrUnknownDevice), errors.Is(err, ErrReportNotFound):
		return true
	default:
		return errors.Is(err, context.Canceled)
	}
}

// State returns "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateName(cbc.cb.State())
}

// execute runs fn through the breaker and records the outcome.
func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		logging.Debug().Err(err).Str("breaker", cbc.name).Msg("Upstream call refused by open circuit")
	case !isSuccessful(err):
		outcome = "failure"
	}
	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, outcome).Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).
		Set(float64(cbc.cb.Counts().ConsecutiveFailures))

	if outcome != "success" {
		return nil, err
	}
	return result, err
}

// guarded runs a typed call through cbc's breaker.
func guarded[T any](cbc *CircuitBreakerClient, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cbc.execute(func() (any, error) { return fn() })
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: got %T, want %T", result, zero)
	}
	return typed, nil
}

var breakerStates = map[gobreaker.State]struct {
	name  string
	gauge float64
}{
	gobreaker.StateClosed:   {"closed", 0},
	gobreaker.StateHalfOpen: {"half-open", 1},
	gobreaker.StateOpen:     {"open", 2},
}

func stateName(s gobreaker.State) string {
	if st, ok := breakerStates[s]; ok {
		return st.name
	}
	return "unknown"
}

func stateGauge(s gobreaker.State) float64 {
	if st, ok := breakerStates[s]; ok {
		return st.gauge
	}
	return -1
}

func (cbc *CircuitBreakerClient) Device(ctx context.Context, key string) (*models.Device, error) {
	return guarded(cbc, func() (*models.Device, error) { return cbc.client.Device(ctx, key) })
}

func (cbc *CircuitBreakerClient) Count(ctx context.Context, key string, since, until time.Time) (int, error) {
	return guarded(cbc, func() (int, error) { return cbc.client.Count(ctx, key, since, until) })
}

func (cbc *CircuitBreakerClient) Reports(ctx context.Context, key string, params ReportParams) ([]models.Report, error) {
	return guarded(cbc, func() ([]models.Report, error) { return cbc.client.Reports(ctx, key, params) })
}

func (cbc *CircuitBreakerClient) Report(ctx context.Context, key, id string) (*models.Report, error) {
	return guarded(cbc, func() (*models.Report, error) { return cbc.client.Report(ctx, key, id) })
}
