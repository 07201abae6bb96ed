package httpfetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common errors returned by the fetcher.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrRateLimited is returned while the shared rate limit budget is used up.
	ErrRateLimited = errors.New("rate limit exhausted")
)

// ErrorClass represents a classification of page request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and locally blocked requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents response bodies that are not a page envelope.
	ErrorClassDecode ErrorClass = "decode"
)

// HTTPError is a failed page request.
type HTTPError struct {
	StatusCode int
	ErrorClass ErrorClass
	URL        string
	Message    string

	// RetryAfter is the server-requested delay before the next attempt.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page request %s error (status %d) for %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("page request %s error (status %d) for %s: %s",
		e.ErrorClass, e.StatusCode, e.URL, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// client and decode errors repeat on every attempt
		return false
	}
}
