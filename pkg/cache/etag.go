package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ETag computes a content fingerprint for a response payload.
// The payload is serialized to canonical JSON, combined with the effective
// last-modified timestamp and hashed. The result is wrapped in double
// quotes per HTTP ETag convention.
//
// A zero lastModified falls back to the current time, which means the
// fingerprint is only stable within a single request/response cycle.
// Callers that need a repeatable fingerprint must pass an explicit
// timestamp.
func ETag(data interface{}, lastModified time.Time) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serialize payload for fingerprint: %w", err)
	}

	if lastModified.IsZero() {
		lastModified = time.Now()
	}

	h := md5.New()
	h.Write(payload)
	h.Write([]byte("|"))
	h.Write([]byte(lastModified.UTC().Format(http.TimeFormat)))

	return fmt.Sprintf("%q", hex.EncodeToString(h.Sum(nil))), nil
}

// NotModified reports whether the request's validators match the current
// fingerprint, i.e. whether the route may answer 304 instead of 200.
//
// If-None-Match is checked first with an exact string comparison (weak
// comparison is not implemented). If-Modified-Since is consulted only when
// a last-modified timestamp is known; a missing validator never counts as
// a match.
func NotModified(r *http.Request, etag string, lastModified time.Time) bool {
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		return true
	}

	if lastModified.IsZero() {
		return false
	}

	since := r.Header.Get("If-Modified-Since")
	if since == "" {
		return false
	}

	t, err := http.ParseTime(since)
	if err != nil {
		return false
	}

	// Last-Modified carries second precision on the wire.
	return !t.Before(lastModified.Truncate(time.Second))
}

// WriteNotModified writes a bare 304 response. Per RFC 9111 the response
// still advises revalidation so that stale fronting caches re-check.
func WriteNotModified(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	w.WriteHeader(http.StatusNotModified)
}
