package cache

import (
	"time"
)

// Entry represents a cached API response payload in the shared store.
type Entry struct {
	// Data is the serialized response payload
	Data []byte `json:"data"`

	// ETag is the content fingerprint served with the payload
	ETag string `json:"etag"`

	// LastModified is the effective modification time of the payload
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry becomes stale (policy max-age)
	Expires time.Time `json:"expires"`

	// StatusCode is the HTTP status the payload was served with
	StatusCode int `json:"status_code"`

	// ContentType is the response media type
	ContentType string `json:"content_type"`

	// CachedAt is when the entry was stored
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has passed its freshness lifetime.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
