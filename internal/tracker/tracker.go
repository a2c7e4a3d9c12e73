// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/follow"
	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/trip"
)

// State is a tracker's position in the fetch cycle.
type State string

const (
	StateIdle            State = "idle"
	StateCheckingDevice  State = "checking_device"
	StateDeviceNotFound  State = "device_not_found"
	StateFetchingCount   State = "fetching_count"
	StateFetchingReports State = "fetching_reports"
)

// Config controls polling for a single device.
type Config struct {
	PollInterval   time.Duration
	PruneInterval  time.Duration
	PageSize       int
	PruneThreshold time.Duration
	TripSplitGap   time.Duration
}

// ConfigFrom extracts the per-device settings from the tracker section.
func ConfigFrom(cfg *config.TrackerConfig) Config {
	return Config{
		PollInterval:   cfg.PollInterval,
		PruneInterval:  cfg.PruneInterval,
		PageSize:       cfg.PageSize,
		PruneThreshold: cfg.PruneThreshold,
		TripSplitGap:   cfg.TripSplitGap,
	}
}

// Tracker polls the report API for one device and keeps its trips.
//
// Lifecycle: CheckDevice moves idle -> checking_device -> device_not_found or
// fetching_count. Start then loops fetching_count -> fetching_reports,
// polling every PollInterval, immediately again after a full page, and
// pruning every PruneInterval.
type Tracker struct {
	key    string
	source follow.ReportSource
	cfg    Config
	store  *trip.Store
	now    func() time.Time
	notify func(key string)

	mu           sync.RWMutex
	state        State
	totalReports int
	currentSince time.Time
	epoch        uint64 // bumped when a refetch discards the trips
	lastPoll     time.Time
	lastErr      error
	running      bool
	stopChan     chan struct{}
	wg           sync.WaitGroup

	wake       chan struct{}
	lastAccess atomic.Int64

	// published is this tracker's share of the stored reports gauge. A
	// stopped tracker withdraws its share until it starts again.
	gaugeMu   sync.Mutex
	published int
	withdrawn bool
}

// New creates an idle tracker. notify, if non-nil, is called from the poll
// goroutine whenever the trips change and must not block.
func New(key string, source follow.ReportSource, cfg Config, notify func(key string)) *Tracker {
	t := &Tracker{
		key:    key,
		source: source,
		cfg:    cfg,
		store:  trip.NewStore(cfg.TripSplitGap, cfg.PruneThreshold),
		now:    time.Now,
		notify: notify,
		state:  StateIdle,
		wake:   make(chan struct{}, 1),
	}
	t.Touch()
	return t
}

// Key returns the device key.
func (t *Tracker) Key() string { return t.key }

// Store exposes the trip store.
func (t *Tracker) Store() *trip.Store { return t.store }

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Touch marks the tracker as recently used.
func (t *Tracker) Touch() {
	t.lastAccess.Store(t.now().UnixNano())
}

// LastAccess returns when the tracker was last touched.
func (t *Tracker) LastAccess() time.Time {
	return time.Unix(0, t.lastAccess.Load())
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Tracker) setErr(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
}

// CheckDevice confirms the device exists. It returns follow.ErrUnknownDevice
// and leaves the tracker in device_not_found if the backend does not know the
// key. Other errors return the tracker to idle so the loop retries.
func (t *Tracker) CheckDevice(ctx context.Context) error {
	t.setState(StateCheckingDevice)

	_, err := t.source.Device(ctx, t.key)
	switch {
	case errors.Is(err, follow.ErrUnknownDevice):
		t.setErr(err)
		t.setState(StateDeviceNotFound)
		metrics.RecordTrackerPoll("not_found")
		return err
	case err != nil:
		t.setErr(err)
		t.setState(StateIdle)
		metrics.RecordTrackerPoll("error")
		return err
	}

	t.setErr(nil)
	t.setState(StateFetchingCount)
	return nil
}

// since returns the lower bound for the next fetch: the newest report seen,
// or the start of the horizon.
func (t *Tracker) since() time.Time {
	t.mu.RLock()
	since := t.currentSince
	t.mu.RUnlock()
	if !since.IsZero() {
		return since
	}
	return t.now().Add(-t.store.Horizon())
}

// Poll runs one step of the fetch cycle and returns how long to wait before
// the next one. A full page returns zero.
func (t *Tracker) Poll(ctx context.Context) time.Duration {
	t.mu.Lock()
	t.lastPoll = t.now()
	t.mu.Unlock()

	switch t.State() {
	case StateDeviceNotFound:
		return t.cfg.PollInterval
	case StateIdle, StateCheckingDevice:
		if err := t.CheckDevice(ctx); err != nil {
			if !errors.Is(err, follow.ErrUnknownDevice) {
				logging.Ctx(ctx).Warn().Err(err).Msg("Device check failed")
			}
			return t.cfg.PollInterval
		}
	}

	if t.State() == StateFetchingCount {
		t.fetchCount(ctx)
	}
	return t.fetchReports(ctx)
}

// fetchCount records the total number of reports in range. A failure is
// logged and the cycle continues to the reports.
func (t *Tracker) fetchCount(ctx context.Context) {
	count, err := t.source.Count(ctx, t.key, t.since(), time.Time{})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to fetch report count")
	} else {
		t.mu.Lock()
		t.totalReports = count
		t.mu.Unlock()
	}
	t.setState(StateFetchingReports)
}

func (t *Tracker) fetchReports(ctx context.Context) time.Duration {
	t.mu.RLock()
	epoch := t.epoch
	t.mu.RUnlock()

	reports, err := t.source.Reports(ctx, t.key, follow.ReportParams{
		Since: t.since(),
		Limit: t.cfg.PageSize,
		Order: follow.OrderAsc,
	})
	if err != nil {
		t.setErr(err)
		if ctx.Err() == nil {
			metrics.RecordTrackerPoll("error")
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to fetch reports")
		}
		return t.cfg.PollInterval
	}
	metrics.RecordTrackerPoll("success")

	t.mu.Lock()
	if t.epoch != epoch {
		// The horizon was widened while this page was in flight.
		t.mu.Unlock()
		return 0
	}
	added := t.store.Add(reports)
	t.lastErr = nil
	if n := len(reports); n > 0 && reports[n-1].Timestamp.After(t.currentSince) {
		t.currentSince = reports[n-1].Timestamp
	}
	if t.totalReports < t.store.Len() {
		t.totalReports = t.store.Len()
	}
	t.mu.Unlock()

	if added > 0 {
		t.publishStored()
		logging.Ctx(ctx).Debug().Int("added", added).Int("stored", t.store.Len()).Msg("Stored new reports")
		t.changed()
	}

	if len(reports) >= t.cfg.PageSize {
		return 0
	}
	return t.cfg.PollInterval
}

// Prune drops reports older than the horizon.
func (t *Tracker) Prune() int {
	removed := t.prune()
	if removed > 0 {
		t.changed()
	}
	return removed
}

func (t *Tracker) prune() int {
	removed := t.store.Prune(t.now())
	if removed > 0 {
		metrics.TrackerReportsPruned.Add(float64(removed))
		t.publishStored()
	}
	return removed
}

// SetHorizon changes how far back reports are kept. Narrowing prunes at
// once; widening discards the trips and refetches the wider range.
func (t *Tracker) SetHorizon(d time.Duration) {
	t.store.SetHorizon(d)
	if !t.store.ShouldRefetch() {
		t.prune()
		t.changed()
		return
	}

	t.mu.Lock()
	t.store.Clear()
	t.epoch++
	t.currentSince = time.Time{}
	t.totalReports = 0
	if t.state == StateFetchingReports {
		t.state = StateFetchingCount
	}
	t.mu.Unlock()
	t.publishStored()

	t.changed()
	t.Wake()
}

// Wake schedules an immediate poll.
func (t *Tracker) Wake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Tracker) changed() {
	if t.notify != nil {
		t.notify(t.key)
	}
}

// Status returns a snapshot for the status endpoint.
func (t *Tracker) Status() models.TrackerStatus {
	t.mu.RLock()
	status := models.TrackerStatus{
		Device:         t.key,
		State:          string(t.state),
		TotalReports:   t.totalReports,
		PruneThreshold: t.store.Horizon().Milliseconds(),
	}
	if !t.lastPoll.IsZero() {
		lp := t.lastPoll
		status.LastPoll = &lp
	}
	if t.lastErr != nil {
		status.LastError = t.lastErr.Error()
	}
	t.mu.RUnlock()

	status.FetchedReports = t.store.Len()
	status.Trips = t.store.TripCount()
	if last, ok := t.store.Last(); ok {
		status.LastReport = &last
	}
	return status
}

// Start begins the poll loop. The first poll runs immediately.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.stopChan = make(chan struct{})
	t.mu.Unlock()
	t.setWithdrawn(false)

	t.wg.Add(1)
	go t.pollLoop(logging.ContextWithDevice(ctx, t.key))
	return nil
}

// Stop ends the poll loop and waits for it to exit.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopChan)
	t.mu.Unlock()

	t.wg.Wait()
	t.setWithdrawn(true)
}

func (t *Tracker) setWithdrawn(w bool) {
	t.gaugeMu.Lock()
	t.withdrawn = w
	t.gaugeMu.Unlock()
	t.publishStored()
}

// publishStored moves the stored reports gauge by the change in this
// tracker's share since the last call.
func (t *Tracker) publishStored() {
	t.gaugeMu.Lock()
	defer t.gaugeMu.Unlock()

	share := t.store.Len()
	if t.withdrawn {
		share = 0
	}
	if delta := share - t.published; delta != 0 {
		metrics.TrackerReportsStored.Add(float64(delta))
		t.published = share
	}
}

func (t *Tracker) pollLoop(ctx context.Context) {
	defer t.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	pruneTicker := time.NewTicker(t.cfg.PruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case <-pruneTicker.C:
			t.Prune()
		case <-t.wake:
			timer.Reset(t.Poll(ctx))
		case <-timer.C:
			timer.Reset(t.Poll(ctx))
		}
	}
}
