package store

import (
	"encoding/json"
	"time"
)

// Entry is the envelope stored for every cached response.
type Entry struct {
	// Data is the JSON encoding of the response ("null" for an absent one)
	Data json.RawMessage `json:"data"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale (zero means never)
	Expires time.Time `json:"expires"`
}

// NewEntry wraps a JSON payload. A ttl <= 0 produces an entry without
// expiry.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	now := time.Now()
	entry := &Entry{
		Data:     data,
		CachedAt: now,
	}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}
	return entry
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return !e.Expires.IsZero() && time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired or if the entry never expires.
func (e *Entry) TTL() time.Duration {
	if e.Expires.IsZero() {
		return 0
	}
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// IsAbsent reports whether the entry remembers a not-found response.
func (e *Entry) IsAbsent() bool {
	return len(e.Data) == 0 || string(e.Data) == "null"
}
