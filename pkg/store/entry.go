package store

import (
	"encoding/json"
	"time"
)

// Entry is a cached page.
type Entry struct {
	// Data is the page encoded as a JSON envelope.
	Data json.RawMessage `json:"data"`

	// Items is the number of items on the page.
	Items int `json:"items"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the page was written.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
