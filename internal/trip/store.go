// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package trip

import (
	"sync"
	"time"

	"github.com/tomtom215/follow/internal/models"
)

// Store accumulates one device's reports as trips. It is safe for concurrent
// use. Every mutation bumps Version so readers can cache derived data.
type Store struct {
	mu sync.RWMutex

	gap     time.Duration
	horizon time.Duration

	// fetchedHorizon is the horizon the current contents were fetched for.
	fetchedHorizon time.Duration

	trips   []Trip
	seen    map[string]struct{}
	count   int
	last    *models.Report
	version uint64
}

// NewStore returns an empty store. A non-positive gap uses DefaultGap.
func NewStore(gap, horizon time.Duration) *Store {
	if gap <= 0 {
		gap = DefaultGap
	}
	return &Store{
		gap:            gap,
		horizon:        horizon,
		fetchedHorizon: horizon,
		seen:           make(map[string]struct{}),
	}
}

// Add appends reports, skipping IDs already held. It returns how many were
// added.
func (s *Store) Add(reports []models.Report) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]models.Report, 0, len(reports))
	for i := range reports {
		if _, dup := s.seen[reports[i].ID]; dup {
			continue
		}
		s.seen[reports[i].ID] = struct{}{}
		fresh = append(fresh, reports[i])
	}
	if len(fresh) == 0 {
		return 0
	}

	s.trips = appendReports(s.trips, fresh, s.gap)
	s.count += len(fresh)
	last := fresh[len(fresh)-1]
	s.last = &last
	s.version++
	return len(fresh)
}

// Prune drops reports older than now minus the horizon and any trips left
// empty. It returns how many reports were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.horizon <= 0 {
		return 0
	}
	cutoff := now.Add(-s.horizon)
	removed := 0
	kept := s.trips[:0]
	for _, t := range s.trips {
		first := 0
		for first < len(t.Reports) && t.Reports[first].Timestamp.Before(cutoff) {
			delete(s.seen, t.Reports[first].ID)
			first++
		}
		removed += first
		if first == len(t.Reports) {
			continue
		}
		t.Reports = t.Reports[first:]
		kept = append(kept, t)
	}
	// Clear the tail so dropped trips can be collected.
	for i := len(kept); i < len(s.trips); i++ {
		s.trips[i] = Trip{}
	}
	s.trips = kept

	if removed > 0 {
		s.count -= removed
		s.version++
	}
	return removed
}

// Trips returns a deep copy of the current trips.
func (s *Store) Trips() []Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Trip, len(s.trips))
	for i, t := range s.trips {
		out[i] = Trip{Reports: append([]models.Report(nil), t.Reports...)}
	}
	return out
}

// Len returns the number of reports held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// TripCount returns the number of trips held.
func (s *Store) TripCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trips)
}

// Last returns the most recently added report, even if it has since been
// pruned.
func (s *Store) Last() (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.Report{}, false
	}
	return *s.last, true
}

// Version changes whenever the trips change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Horizon returns the pruning horizon.
func (s *Store) Horizon() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.horizon
}

// SetHorizon changes the pruning horizon. Narrowing takes effect at the next
// Prune; widening makes ShouldRefetch report true because older reports were
// never fetched.
func (s *Store) SetHorizon(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.horizon {
		return
	}
	s.horizon = d
	if d < s.fetchedHorizon {
		s.fetchedHorizon = d
	}
	s.version++
}

// ShouldRefetch reports whether the horizon now reaches further back than
// the data that was fetched.
func (s *Store) ShouldRefetch() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.horizon > s.fetchedHorizon
}

// Clear drops every report and marks the store as fetched for the current
// horizon.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = nil
	s.seen = make(map[string]struct{})
	s.count = 0
	s.last = nil
	s.fetchedHorizon = s.horizon
	s.version++
}
