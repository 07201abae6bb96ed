package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded is returned to callers of a request that was cancelled by
	// Reset or Close. Its result, if any, was discarded.
	ErrSuperseded = errors.New("page request superseded")

	// ErrClosed is returned by operations on a closed tracker.
	ErrClosed = errors.New("tracker closed")
)

// FetchError wraps a failure of the fetch function.
type FetchError struct {
	// Generation identifies the request within the tracker.
	Generation uint64

	// PagesLoaded is the number of pages present when the request started.
	PagesLoaded int

	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (request %d): %v", e.PagesLoaded+1, e.Generation, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
