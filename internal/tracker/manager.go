// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/follow"
	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
)

var (
	// ErrTooManyDevices is returned by Follow when MaxDevices trackers are running.
	ErrTooManyDevices = errors.New("tracker: too many devices followed")

	// ErrNotRunning is returned by Follow before Start or after Stop.
	ErrNotRunning = errors.New("tracker: manager not running")
)

// Manager owns one Tracker per followed device.
type Manager struct {
	source      follow.ReportSource
	cfg         Config
	maxDevices  int
	idleTimeout time.Duration

	mu        sync.RWMutex
	trackers  map[string]*Tracker
	onUpdate  func(key string)
	keepAlive func(key string) bool
	ctx       context.Context
	running   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates a manager reading from source.
func NewManager(source follow.ReportSource, cfg *config.TrackerConfig) *Manager {
	return &Manager{
		source:      source,
		cfg:         ConfigFrom(cfg),
		maxDevices:  cfg.MaxDevices,
		idleTimeout: cfg.IdleTimeout,
		trackers:    make(map[string]*Tracker),
	}
}

// SetOnUpdate registers the listener told when a device's trips change.
// It is called from poll goroutines and must not block.
func (m *Manager) SetOnUpdate(fn func(key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// SetKeepAlive registers a check that keeps otherwise idle trackers running,
// e.g. while a websocket client is subscribed.
func (m *Manager) SetKeepAlive(fn func(key string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keepAlive = fn
}

func (m *Manager) emit(key string) {
	m.mu.RLock()
	fn := m.onUpdate
	m.mu.RUnlock()
	if fn != nil {
		fn(key)
	}
}

// Start enables Follow and begins reaping idle trackers. Trackers run until
// ctx is canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.ctx = ctx
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	logging.Info().
		Int("max_devices", m.maxDevices).
		Dur("poll_interval", m.cfg.PollInterval).
		Dur("idle_timeout", m.idleTimeout).
		Msg("Starting tracker manager")

	m.wg.Add(1)
	go m.reapLoop(ctx)
	return nil
}

// Stop halts every tracker and the reaper.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	trackers := m.trackers
	m.trackers = make(map[string]*Tracker)
	m.mu.Unlock()

	m.wg.Wait()
	for _, t := range trackers {
		t.Stop()
	}
	metrics.TrackedDevices.Set(0)
	logging.Info().Int("devices", len(trackers)).Msg("Tracker manager stopped")
}

// Follow returns the tracker for key, starting one if needed. A new device
// is checked against the backend first: unknown keys return
// follow.ErrUnknownDevice and are not tracked.
func (m *Manager) Follow(ctx context.Context, key string) (*Tracker, error) {
	if t, ok := m.Get(key); ok {
		return t, nil
	}

	if err := m.admit(); err != nil {
		return nil, err
	}

	t := New(key, m.source, m.cfg, m.emit)
	if err := t.CheckDevice(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.trackers[key]; ok {
		m.mu.Unlock()
		existing.Touch()
		return existing, nil
	}
	if !m.running {
		m.mu.Unlock()
		return nil, ErrNotRunning
	}
	if m.maxDevices > 0 && len(m.trackers) >= m.maxDevices {
		m.mu.Unlock()
		return nil, ErrTooManyDevices
	}
	m.trackers[key] = t
	runCtx := m.ctx
	count := len(m.trackers)
	m.mu.Unlock()

	metrics.TrackedDevices.Set(float64(count))
	logging.Ctx(logging.ContextWithDevice(ctx, key)).Info().Int("devices", count).Msg("Following device")

	if err := t.Start(runCtx); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Manager) admit() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.running {
		return ErrNotRunning
	}
	if m.maxDevices > 0 && len(m.trackers) >= m.maxDevices {
		return ErrTooManyDevices
	}
	return nil
}

// Get returns the running tracker for key and marks it used.
func (m *Manager) Get(key string) (*Tracker, bool) {
	m.mu.RLock()
	t, ok := m.trackers[key]
	m.mu.RUnlock()
	if ok {
		t.Touch()
	}
	return t, ok
}

// Running reports whether Start has been called without a matching Stop.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Len returns the number of followed devices.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trackers)
}

// Keys returns the followed device keys, sorted.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.trackers))
	for k := range m.trackers {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (m *Manager) reapLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case now := <-ticker.C:
			m.reapIdle(now)
		}
	}
}

// reapIdle stops trackers not touched for idleTimeout. It returns the keys removed.
func (m *Manager) reapIdle(now time.Time) []string {
	if m.idleTimeout <= 0 {
		return nil
	}

	m.mu.Lock()
	keepAlive := m.keepAlive
	var idle []*Tracker
	for key, t := range m.trackers {
		if now.Sub(t.LastAccess()) < m.idleTimeout {
			continue
		}
		if keepAlive != nil && keepAlive(key) {
			continue
		}
		idle = append(idle, t)
		delete(m.trackers, key)
	}
	count := len(m.trackers)
	m.mu.Unlock()

	keys := make([]string, 0, len(idle))
	for _, t := range idle {
		t.Stop()
		keys = append(keys, t.Key())
		logging.Info().Str("device", t.Key()).Msg("Stopped idle tracker")
	}
	metrics.TrackedDevices.Set(float64(count))
	return keys
}
