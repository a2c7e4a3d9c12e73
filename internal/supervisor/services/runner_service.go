// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package services

import (
	"context"
	"fmt"
)

// Runner is anything with a blocking, context-bound run loop, such as
// *websocket.Hub.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a Runner. Errors returned after the context
// ended are shutdown noise and pass through unwrapped.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService names runner for supervisor logs.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewWebSocketHubService supervises the websocket hub.
func NewWebSocketHubService(hub Runner) *RunnerService {
	return NewRunnerService("websocket-hub", hub)
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.RunWithContext(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return err
}

func (s *RunnerService) String() string {
	return s.name
}
