// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/follow/internal/metrics"
)

type item[V any] struct {
	value   V
	expires time.Time
}

// Cache is a TTL cache of V values, safe for concurrent use. With a
// positive limit it never holds more than limit entries.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	limit int

	mu    sync.RWMutex
	items map[string]item[V]

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	lastCleanup atomic.Int64 // unix nanos

	done     chan struct{}
	doneOnce sync.Once
}

// Stats is a point-in-time view of a cache's counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int
	LastCleanup time.Time
}

// New starts a cache labeled name in metrics. Expired entries are swept in
// the background at the TTL interval, but never more than once a second,
// until Close.
//
//	segments := cache.New[models.DeviceSegments]("segments", time.Minute, 1000)
//	defer segments.Close()
func New[V any](name string, ttl time.Duration, limit int) *Cache[V] {
	c := &Cache[V]{
		name:  name,
		ttl:   ttl,
		limit: limit,
		items: make(map[string]item[V]),
		done:  make(chan struct{}),
	}
	c.lastCleanup.Store(time.Now().UnixNano())

	go c.sweepEvery(max(ttl, time.Second))
	return c
}

// Get looks key up. An expired entry is dropped and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if ok && time.Now().After(it.expires) {
		c.mu.Lock()
		// Only drop it if nobody refreshed the entry in between.
		if cur, still := c.items[key]; still && !time.Now().Before(cur.expires) {
			delete(c.items, key)
			c.evicted(1)
			c.publishSize()
		}
		c.mu.Unlock()
		ok = false
	}

	metrics.RecordCacheLookup(c.name, ok)
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return it.value, true
}

// Set stores value under key for the cache's TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. Adding a key to a full cache
// first evicts the entry due to expire soonest.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, replace := c.items[key]; !replace && c.limit > 0 && len(c.items) >= c.limit {
		c.evictSoonest()
	}
	c.items[key] = item[V]{value: value, expires: time.Now().Add(ttl)}
	c.publishSize()
}

func (c *Cache[V]) evictSoonest() {
	victim, first := "", true
	var at time.Time
	for k, it := range c.items {
		if first || it.expires.Before(at) {
			victim, at, first = k, it.expires, false
		}
	}
	if !first {
		delete(c.items, victim)
		c.evicted(1)
	}
}

// Delete drops key if present.
func (c *Cache[V]) Delete(key string) {
	c.removeIf(func(k string) bool { return k == key })
}

// DeletePrefix drops every key starting with prefix and returns the count.
func (c *Cache[V]) DeletePrefix(prefix string) int {
	return c.removeIf(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

// Clear drops everything.
func (c *Cache[V]) Clear() {
	c.removeIf(func(string) bool { return true })
}

func (c *Cache[V]) removeIf(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.items {
		if match(k) {
			delete(c.items, k)
			n++
		}
	}
	if n > 0 {
		c.evicted(n)
		c.publishSize()
	}
	return n
}

// Len counts held entries, expired ones not yet swept included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper. The cache keeps working without it.
func (c *Cache[V]) Close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Stats snapshots the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     c.Len(),
		LastCleanup: time.Unix(0, c.lastCleanup.Load()),
	}
}

// HitRate is hits as a percentage of lookups, 0 before the first lookup.
func (c *Cache[V]) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return 100 * float64(hits) / float64(hits+misses)
}

func (c *Cache[V]) sweepEvery(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.sweep(time.Now())
		case <-c.done:
			return
		}
	}
}

func (c *Cache[V]) sweep(now time.Time) {
	c.mu.Lock()
	n := 0
	for k, it := range c.items {
		if now.After(it.expires) {
			delete(c.items, k)
			n++
		}
	}
	if n > 0 {
		c.evicted(n)
		c.publishSize()
	}
	c.mu.Unlock()
	c.lastCleanup.Store(now.UnixNano())
}

// evicted and publishSize expect c.mu to be held.
func (c *Cache[V]) evicted(n int) {
	c.evictions.Add(int64(n))
}

func (c *Cache[V]) publishSize() {
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.items)))
}

// Key joins prefix with a short digest of params' JSON encoding. Values
// that cannot be encoded fall back to their %v form.
func Key(prefix string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
