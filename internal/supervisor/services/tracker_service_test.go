// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*TrackerService)(nil)

type fakeManager struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeManager) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeManager) Stop() {
	f.stops.Add(1)
}

func TestTrackerService_Serve(t *testing.T) {
	t.Parallel()

	t.Run("stops manager on cancel", func(t *testing.T) {
		t.Parallel()
		m := &fakeManager{}
		svc := NewTrackerService(m)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		if m.starts.Load() != 1 || m.stops.Load() != 0 {
			t.Fatalf("starts=%d stops=%d while running", m.starts.Load(), m.stops.Load())
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
		if m.stops.Load() != 1 {
			t.Errorf("stops = %d, want 1", m.stops.Load())
		}
	})

	t.Run("start failure", func(t *testing.T) {
		t.Parallel()
		startErr := errors.New("boom")
		m := &fakeManager{startErr: startErr}

		err := NewTrackerService(m).Serve(context.Background())
		if !errors.Is(err, startErr) {
			t.Errorf("Serve() = %v, want wrapped start error", err)
		}
		if m.stops.Load() != 0 {
			t.Error("Stop should not be called when Start fails")
		}
	})

	t.Run("runs under supervisor", func(t *testing.T) {
		t.Parallel()
		m := &fakeManager{}
		sup := suture.New("test-sup", suture.Spec{Timeout: time.Second})
		sup.Add(NewTrackerService(m))

		ctx, cancel := context.WithCancel(context.Background())
		errCh := sup.ServeBackground(ctx)
		time.Sleep(30 * time.Millisecond)
		cancel()
		<-errCh

		if m.starts.Load() != 1 || m.stops.Load() != 1 {
			t.Errorf("starts=%d stops=%d, want 1/1", m.starts.Load(), m.stops.Load())
		}
	})
}
