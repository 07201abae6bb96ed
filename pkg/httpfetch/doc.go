// Package httpfetch loads pages from JSON APIs that link pages through a
// next URL, for example {"items": [...], "links": {"next": "/items?page=2"}}.
//
// The first request goes to Config.URL. Every later request goes to the
// next link of the last loaded page, resolved against Config.URL, so the
// page cursor is the link itself. A page without a next link ends the list.
//
// # Basic Usage
//
//	f, err := httpfetch.New[Order](httpfetch.DefaultConfig("https://api.example.com/orders"))
//	if err != nil {
//		return err
//	}
//	t := tracker.New(httpfetch.Func[Order, struct{}](f), struct{}{}, presenter, tracker.DefaultConfig())
//
// # Error Handling
//
// Server errors (5xx), rate limit responses (429) and network errors are
// retried with exponential backoff and jitter. Client errors (4xx) and
// bodies that do not match the envelope fail immediately. Failures are
// returned as *HTTPError; exhausted retries wrap ErrRetryExhausted.
// Cancellation by the tracker is returned unchanged and never retried.
//
// With Config.Limiter set, X-RateLimit-Remaining / X-RateLimit-Reset and
// Retry-After headers are recorded in Redis and requests wait while the
// shared budget is exhausted.
//
// # Metrics
//
//   - pagetracker_http_requests_total{status}
//   - pagetracker_http_request_duration_seconds
//   - pagetracker_http_errors_total{class}
//   - pagetracker_http_retries_total{error_class}
//   - pagetracker_http_retry_backoff_seconds{error_class}
//   - pagetracker_http_retry_exhausted_total{error_class}
package httpfetch
