// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package services

import (
	"context"
	"fmt"
)

// StartStopper is satisfied by *tracker.Manager.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
}

// TrackerService adapts the tracker manager's Start/Stop lifecycle to
// suture.Service. Stopping drops every tracked device; a restart begins
// with an empty set and devices come back on their next request.
type TrackerService struct {
	manager StartStopper
	name    string
}

// NewTrackerService wraps manager.
func NewTrackerService(manager StartStopper) *TrackerService {
	return &TrackerService{
		manager: manager,
		name:    "tracker-manager",
	}
}

// Serve implements suture.Service.
func (s *TrackerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("start tracker manager: %w", err)
	}
	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

func (s *TrackerService) String() string {
	return s.name
}
