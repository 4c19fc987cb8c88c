package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// metricEntry is the mutable per-key counter record.
type metricEntry struct {
	hits       int64
	misses     int64
	lastAccess time.Time
}

// KeyMetrics is the read-only view of one key's counters.
type KeyMetrics struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Total      int64     `json:"total"`
	HitRate    string    `json:"hitRate"`
	LastAccess time.Time `json:"lastAccess"`
}

// Recorder tracks hit/miss counts per cache key for the lifetime of the
// process. It is an explicitly constructed service, not package state, so
// tests can run isolated instances. The clock is injectable to make
// age-based pruning deterministic under test.
//
// Entries accumulate until pruned by ClearOlderThan; restarting the
// process resets everything.
type Recorder struct {
	mu      sync.Mutex
	entries map[string]*metricEntry
	now     func() time.Time
}

// NewRecorder creates an empty metrics recorder using the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{
		entries: make(map[string]*metricEntry),
		now:     time.Now,
	}
}

// SetClock replaces the recorder's time source. Intended for tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Hit records a cache hit for a key.
func (r *Recorder) Hit(key string) {
	r.record(key, true)
	CacheHits.WithLabelValues(collectionOf(key)).Inc()
}

// Miss records a cache miss for a key.
func (r *Recorder) Miss(key string) {
	r.record(key, false)
	CacheMisses.WithLabelValues(collectionOf(key)).Inc()
}

func (r *Recorder) record(key string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &metricEntry{}
		r.entries[key] = e
	}
	if hit {
		e.hits++
	} else {
		e.misses++
	}
	e.lastAccess = r.now()
}

// Snapshot returns the per-key metrics view.
func (r *Recorder) Snapshot() map[string]KeyMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]KeyMetrics, len(r.entries))
	for key, e := range r.entries {
		out[key] = KeyMetrics{
			Hits:       e.hits,
			Misses:     e.misses,
			Total:      e.hits + e.misses,
			HitRate:    hitRate(e.hits, e.misses),
			LastAccess: e.lastAccess,
		}
	}
	return out
}

// Totals aggregates all keys into a single metrics record.
func (r *Recorder) Totals() KeyMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	var agg KeyMetrics
	for _, e := range r.entries {
		agg.Hits += e.hits
		agg.Misses += e.misses
		if e.lastAccess.After(agg.LastAccess) {
			agg.LastAccess = e.lastAccess
		}
	}
	agg.Total = agg.Hits + agg.Misses
	agg.HitRate = hitRate(agg.Hits, agg.Misses)
	return agg
}

// ClearOlderThan removes entries whose last access is older than the given
// number of hours and returns how many were removed. Zero hours clears the
// map unconditionally.
func (r *Recorder) ClearOlderThan(hours int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hours <= 0 {
		removed := len(r.entries)
		r.entries = make(map[string]*metricEntry)
		return removed
	}

	cutoff := r.now().Add(-time.Duration(hours) * time.Hour)
	removed := 0
	for key, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// hitRate formats hits/(hits+misses) as a percentage string, "0%" when no
// traffic has been recorded.
func hitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)/float64(total)*100)
}

// collectionOf extracts the collection segment of a cache key for metric
// labels. Keys without a separator count as their own collection.
func collectionOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
