package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/logging"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
	"github.com/Sternrassler/pagetracker/pkg/ratelimit"
	"github.com/Sternrassler/pagetracker/pkg/tracker"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "pagetracker/1.0"

// maxErrorBody bounds how much of an error response is kept as message.
const maxErrorBody = 512

// Config holds the fetcher configuration.
type Config struct {
	// URL of the first page. Cursors are resolved against it.
	URL string

	// Envelope describes where items and the next link live in a response
	// (default: pagination.JSONAPI).
	Envelope pagination.Envelope

	// UserAgent header.
	UserAgent string

	// Headers are added to every request, e.g. Authorization.
	Headers map[string]string

	// Timeout bounds a single attempt (default: 30s).
	Timeout time.Duration

	// Retry controls retries of server, rate limit and network errors.
	Retry RetryConfig

	// Limiter optionally gates requests on a shared rate limit budget.
	Limiter *ratelimit.Limiter

	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a default configuration for the list at rawURL.
func DefaultConfig(rawURL string) Config {
	return Config{
		URL:       rawURL,
		Envelope:  pagination.JSONAPI,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Fetcher loads pages of T from a JSON API that links pages through a
// next URL in the response envelope.
type Fetcher[T any] struct {
	httpClient *http.Client
	base       *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a fetcher.
func New[T any](cfg Config) (*Fetcher[T], error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("url must be absolute http(s), got %q", cfg.URL)
	}

	if cfg.Envelope.ItemsField == "" {
		cfg.Envelope = pagination.JSONAPI
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := logging.NewLogger(logging.ComponentHTTP)
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Fetcher[T]{
		httpClient: httpClient,
		base:       base,
		config:     cfg,
		logger:     logger.With().Str("host", base.Host).Logger(),
	}, nil
}

// URLFor returns the URL requested for cursor. The empty cursor is the
// first page; other cursors are next links, absolute or relative.
func (f *Fetcher[T]) URLFor(cursor string) (string, error) {
	if cursor == "" {
		return f.base.String(), nil
	}
	ref, err := url.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", cursor, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Page loads the page addressed by cursor. forceRefresh asks intermediate
// caches to revalidate.
func (f *Fetcher[T]) Page(ctx context.Context, cursor string, forceRefresh bool) (pagination.Page[T], error) {
	target, err := f.URLFor(cursor)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	requestID := uuid.NewString()
	logger := f.logger.With().Str("request_id", requestID).Str("url", target).Logger()

	var page pagination.Page[T]
	err = retryWithBackoff(ctx, f.config.Retry, logger, func(attempt int) (ErrorClass, error) {
		var attemptErr error
		page, attemptErr = f.attempt(ctx, target, requestID, forceRefresh, logger)
		if attemptErr == nil {
			return "", nil
		}

		var httpErr *HTTPError
		if errors.As(attemptErr, &httpErr) {
			httpErrorsTotal.WithLabelValues(string(httpErr.ErrorClass)).Inc()
			return httpErr.ErrorClass, attemptErr
		}
		return "", attemptErr
	})
	if err != nil {
		return pagination.Page[T]{}, err
	}

	logger.Debug().
		Int("items", page.Len()).
		Bool("has_next", page.HasNext()).
		Msg("Page received")

	return page, nil
}

func (f *Fetcher[T]) attempt(ctx context.Context, target, requestID string, forceRefresh bool, logger zerolog.Logger) (pagination.Page[T], error) {
	if err := f.checkRateLimit(ctx, target); err != nil {
		return pagination.Page[T]{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pagination.Page[T]{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if forceRefresh {
		req.Header.Set("Cache-Control", "no-cache")
	}
	for key, value := range f.config.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	httpRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			// cancelled by the tracker, not a network failure
			return pagination.Page[T]{}, ctx.Err()
		}
		httpRequestsTotal.WithLabelValues("network_error").Inc()
		logger.Warn().Err(err).Msg("Page request failed")
		return pagination.Page[T]{}, &HTTPError{
			ErrorClass: ErrorClassNetwork,
			URL:        target,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	httpRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	f.updateRateLimit(ctx, resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pagination.Page[T]{}, f.statusError(resp, target, logger)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pagination.Page[T]{}, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			URL:        target,
			Message:    "read response body",
			Err:        err,
		}
	}

	page, err := pagination.DecodePage[T](body, f.config.Envelope)
	if err != nil {
		return pagination.Page[T]{}, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			URL:        target,
			Message:    "decode page",
			Err:        err,
		}
	}
	return page, nil
}

func (f *Fetcher[T]) checkRateLimit(ctx context.Context, target string) error {
	if f.config.Limiter == nil {
		return nil
	}

	allowed, wait, err := f.config.Limiter.Allow(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// a broken limiter store must not stop paging
		f.logger.Warn().Err(err).Msg("Rate limit check failed")
		return nil
	}
	if !allowed {
		httpRequestsTotal.WithLabelValues("rate_limited").Inc()
		return &HTTPError{
			ErrorClass: ErrorClassRateLimit,
			URL:        target,
			Message:    "blocked by rate limiter",
			RetryAfter: wait,
			Err:        ErrRateLimited,
		}
	}
	return nil
}

func (f *Fetcher[T]) updateRateLimit(ctx context.Context, resp *http.Response) {
	if f.config.Limiter == nil {
		return
	}
	if err := f.config.Limiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}
}

func (f *Fetcher[T]) statusError(resp *http.Response, target string, logger zerolog.Logger) error {
	errClass := classifyStatus(resp.StatusCode)

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(snippet))
	if message == "" {
		message = resp.Status
	}

	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		URL:        target,
		Message:    message,
	}

	if errClass == ErrorClassRateLimit {
		if until, ok := ratelimit.ParseRetryAfter(resp.Header.Get(ratelimit.HeaderRetryAfter), time.Now()); ok {
			httpErr.RetryAfter = time.Until(until)
			if f.config.Limiter != nil {
				if err := f.config.Limiter.Exhaust(resp.Request.Context(), until); err != nil {
					logger.Warn().Err(err).Msg("Failed to record Retry-After")
				}
			}
		}
	}

	logger.Warn().
		Int("status", resp.StatusCode).
		Str("error_class", string(errClass)).
		Msg("Page request error")

	return httpErr
}

// Func adapts f to a tracker fetch function. The context object is not
// used; the cursor of the last loaded page selects the next URL. Once the
// list is exhausted it returns an empty final page without a request.
func Func[T any, C any](f *Fetcher[T]) tracker.FetchFunc[T, C] {
	return func(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error) {
		if pc.Exhausted() {
			return pagination.NewPage[T](nil, ""), nil
		}
		return f.Page(ctx, pc.NextCursor(), pc.ForceRefresh())
	}
}
