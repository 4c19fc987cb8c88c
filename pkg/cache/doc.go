// Package cache provides HTTP response caching for the public content API.
//
// The package covers the full caching surface of the server:
//
// - Deterministic cache key generation (parameter order never matters)
// - ETag fingerprints and conditional request evaluation (If-None-Match, If-Modified-Since)
// - A static per-content-kind Cache-Control policy table
// - Per-key hit/miss metrics with age-based pruning
// - A Redis-backed shared response store
// - An invalidation dispatcher driven by content-mutation hooks
// - An operator-triggered cache warmer
//
// # Basic Usage
//
//	// Build a key for a journal list request
//	key := cache.JournalListKey(cache.ListQuery{Page: 1, Limit: 10})
//
//	// Fingerprint the payload
//	etag, err := cache.ETag(payload, lastModified)
//	if err != nil {
//		return err
//	}
//
//	// Answer 304 when the client's validators match
//	if cache.NotModified(r, etag, lastModified) {
//		recorder.Hit(key.String())
//		cache.WriteNotModified(w)
//		return nil
//	}
//
//	// Otherwise attach cache headers and serve the body
//	cache.PolicyFor(cache.KindJournalList).Apply(w, etag, lastModified)
//	recorder.Miss(key.String())
//
// # Invalidation
//
// The content store's lifecycle hooks call the Invalidator after every
// write. The dispatcher evicts the affected entries from the response
// store, charges the recorder with a miss against the well-known key of
// each query family, and cascades journal writes into the category and
// tag listings they reference. Its errors are logged and swallowed; a
// content write never fails because cache bookkeeping did.
//
// # Metrics
//
// Two metric surfaces exist side by side: the Recorder powers the JSON
// operational endpoint (per-key hits, misses, hit rate), and the
// promauto counters in metrics.go feed Prometheus:
//
//   - journal_cache_hits_total{collection} - Cache hits
//   - journal_cache_misses_total{collection} - Cache misses
//   - journal_304_responses_total - Conditional request successes
//   - journal_cache_invalidations_total{collection} - Invalidation dispatches
//   - journal_cache_store_errors_total{operation} - Response-store errors
package cache
