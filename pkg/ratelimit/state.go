// Package ratelimit tracks the request budget a paginated API advertises
// through X-RateLimit-Remaining / X-RateLimit-Reset headers and gates page
// requests before the budget runs out. State is kept in Redis so every
// process paging the same API shares it.
package ratelimit

import (
	"time"
)

// Header names read by UpdateFromHeaders.
const (
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Default thresholds.
const (
	// DefaultBlockThreshold blocks requests when fewer requests remain.
	DefaultBlockThreshold = 1

	// DefaultThrottleThreshold delays requests when fewer requests remain.
	DefaultThrottleThreshold = 10
)

// State is the last known request budget of one API.
type State struct {
	// Known is false until a response carried rate limit headers.
	Known bool `json:"known"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock reports whether requests must wait for the window to reset.
func (s *State) NeedsBlock(threshold int) bool {
	return s.inWindow() && s.Remaining < threshold
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling(blockThreshold, throttleThreshold int) bool {
	return s.inWindow() && s.Remaining < throttleThreshold && s.Remaining >= blockThreshold
}

// inWindow reports whether the state describes the current window.
func (s *State) inWindow() bool {
	return s.Known && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets, 0 if it
// already has.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
