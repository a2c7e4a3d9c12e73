// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/follow/internal/metrics"
)

func newTestCache(t *testing.T, name string, ttl time.Duration, maxEntries int) *Cache[any] {
	t.Helper()
	c := New[any](name, ttl, maxEntries)
	t.Cleanup(c.Close)
	return c
}

func TestCacheBasicOperations(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-basic", time.Minute, 0)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists = c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-expire", 50*time.Millisecond, 0)

	c.Set("key1", "value1")
	if _, exists := c.Get("key1"); !exists {
		t.Fatal("Expected key1 to exist immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expired entry should be removed on read", c.Len())
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-ttl", time.Minute, 0)

	c.SetWithTTL("short", "v", 50*time.Millisecond)
	c.Set("long", "v")

	time.Sleep(80 * time.Millisecond)

	if _, exists := c.Get("short"); exists {
		t.Error("Expected short to be expired")
	}
	if _, exists := c.Get("long"); !exists {
		t.Error("Expected long to survive")
	}
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-delete", time.Minute, 0)

	c.Set("key1", "value1")
	c.Delete("key1")
	c.Delete("missing")

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-prefix", time.Minute, 0)

	c.Set("device:abc:time", 1)
	c.Set("device:abc:speed", 2)
	c.Set("device:abd:time", 3)

	if n := c.DeletePrefix("device:abc:"); n != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", n)
	}
	if _, ok := c.Get("device:abd:time"); !ok {
		t.Error("unrelated key was removed")
	}
}

func TestCacheClear(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-clear", time.Minute, 0)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
	}
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
	if got := c.Stats().Evictions; got != 3 {
		t.Errorf("Evictions = %d, want 3", got)
	}
}

func TestCacheMaxEntries(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-max", time.Minute, 2)

	c.SetWithTTL("soon", 1, time.Second)
	c.Set("later", 2)
	c.Set("newest", 3)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("soon"); ok {
		t.Error("entry closest to expiry should have been evicted")
	}
	if _, ok := c.Get("newest"); !ok {
		t.Error("newest entry missing")
	}

	// Overwriting an existing key never evicts.
	c.Set("later", 4)
	if c.Len() != 2 {
		t.Errorf("Len() = %d after overwrite, want 2", c.Len())
	}
}

func TestCacheStats(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-stats", time.Minute, 0)

	c.Set("key1", "value1")
	c.Get("key1") // hit
	c.Get("key2") // miss
	c.Get("key1") // hit

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}

	hitRate := c.HitRate()
	expected := 200.0 / 3.0
	if hitRate < expected-0.01 || hitRate > expected+0.01 {
		t.Errorf("Expected hit rate around %.2f%%, got %.2f%%", expected, hitRate)
	}
}

func TestCacheHitRateEmpty(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-empty", time.Minute, 0)
	if c.HitRate() != 0 {
		t.Errorf("HitRate() = %f, want 0", c.HitRate())
	}
}

func TestCacheMetrics(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-metrics", time.Minute, 0)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("zzz")

	if got := testutil.ToFloat64(metrics.CacheSize.WithLabelValues("test-metrics")); got != 2 {
		t.Errorf("cache size gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("test-metrics")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("test-metrics")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-cleanup", time.Minute, 0)

	c.SetWithTTL("gone", 1, time.Millisecond)
	c.Set("kept", 2)
	time.Sleep(5 * time.Millisecond)

	c.sweep(time.Now())

	if c.Len() != 1 {
		t.Errorf("Len() = %d after cleanup, want 1", c.Len())
	}
	if c.Stats().LastCleanup.IsZero() {
		t.Error("LastCleanup not set")
	}
}

func TestCacheCloseIdempotent(t *testing.T) {
	t.Parallel()
	c := New[string]("test-close", time.Minute, 0)
	c.Close()
	c.Close()

	c.Set("still", "usable")
	if _, ok := c.Get("still"); !ok {
		t.Error("cache should stay usable after Close")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, "test-concurrent", time.Minute, 50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.DeletePrefix("k1")
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d, exceeds cap of 50", c.Len())
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	type params struct {
		Device  string
		Mode    string
		Version uint64
	}

	key1 := Key("segments", params{"abc", "speed", 3})
	key2 := Key("segments", params{"abc", "speed", 3})
	key3 := Key("segments", params{"abc", "speed", 4})
	key4 := Key("other", params{"abc", "speed", 3})

	if key1 != key2 {
		t.Error("Expected same params to generate same key")
	}
	if key1 == key3 {
		t.Error("Expected different params to generate different key")
	}
	if key1 == key4 {
		t.Error("Expected different prefixes to generate different keys")
	}
}

func TestKey_Unmarshalable(t *testing.T) {
	t.Parallel()

	key := Key("p", make(chan int))
	if key == "" || key[:2] != "p:" {
		t.Errorf("Key fallback = %q", key)
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := New[string]("bench", time.Minute, 0)
	defer c.Close()
	c.Set("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}
