package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pagetracker_ratelimit_remaining",
		Help: "Requests remaining in the current rate limit window",
	}, []string{"scope"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetracker_ratelimit_blocks_total",
		Help: "Total number of page requests blocked by an exhausted rate limit",
	}, []string{"scope"})

	throttlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetracker_ratelimit_throttles_total",
		Help: "Total number of page requests delayed by a low rate limit",
	}, []string{"scope"})
)

// epochThreshold separates "seconds until reset" from "unix timestamp"
// values of the reset header.
const epochThreshold = 1_000_000_000

// Hash fields of the stored state.
const (
	fieldRemaining  = "remaining"
	fieldReset      = "reset_at"
	fieldLastUpdate = "last_update"
)

// Options configures a Limiter.
type Options struct {
	// BlockThreshold blocks requests when fewer requests remain.
	BlockThreshold int

	// ThrottleThreshold delays requests when fewer requests remain.
	ThrottleThreshold int

	// ThrottleDelay is how long a throttled request waits (default: 500ms).
	ThrottleDelay time.Duration
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		BlockThreshold:    DefaultBlockThreshold,
		ThrottleThreshold: DefaultThrottleThreshold,
		ThrottleDelay:     500 * time.Millisecond,
	}
}

// Limiter monitors the rate limit of one API and gates requests.
type Limiter struct {
	redis  *redis.Client
	scope  string
	opts   Options
	logger zerolog.Logger
}

// NewLimiter creates a limiter for scope, usually the API host.
func NewLimiter(redisClient *redis.Client, scope string, opts Options, logger zerolog.Logger) *Limiter {
	defaults := DefaultOptions()
	if opts.BlockThreshold <= 0 {
		opts.BlockThreshold = defaults.BlockThreshold
	}
	if opts.ThrottleThreshold <= 0 {
		opts.ThrottleThreshold = defaults.ThrottleThreshold
	}
	if opts.ThrottleThreshold < opts.BlockThreshold {
		opts.ThrottleThreshold = opts.BlockThreshold
	}
	if opts.ThrottleDelay <= 0 {
		opts.ThrottleDelay = defaults.ThrottleDelay
	}

	return &Limiter{
		redis:  redisClient,
		scope:  scope,
		opts:   opts,
		logger: logger.With().Str("scope", scope).Logger(),
	}
}

// Key returns the Redis hash holding the state of scope.
func Key(scope string) string {
	return "pagetracker:ratelimit:" + scope
}

// GetState retrieves the current state from Redis. A scope without stored
// state yields an unknown state, which never blocks.
func (l *Limiter) GetState(ctx context.Context) (*State, error) {
	fields, err := l.redis.HGetAll(ctx, Key(l.scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return &State{}, nil
	}

	remaining, err := strconv.Atoi(fields[fieldRemaining])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	resetAt, err := strconv.ParseInt(fields[fieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset: %w", err)
	}
	lastUpdate, err := time.Parse(time.RFC3339Nano, fields[fieldLastUpdate])
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	return &State{
		Known:      true,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetAt, 0),
		LastUpdate: lastUpdate,
	}, nil
}

// UpdateFromHeaders records the budget advertised by a response. Responses
// without rate limit headers leave the state untouched.
func (l *Limiter) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}
	resetAt, err := parseReset(resetStr, time.Now())
	if err != nil {
		return err
	}

	return l.store(ctx, remain, resetAt)
}

// Exhaust marks the budget as used up until the given time, for example
// after a 429 response with a Retry-After header.
func (l *Limiter) Exhaust(ctx context.Context, until time.Time) error {
	return l.store(ctx, 0, until)
}

func (l *Limiter) store(ctx context.Context, remain int, resetAt time.Time) error {
	now := time.Now()
	key := Key(l.scope)

	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldRemaining, remain,
			fieldReset, resetAt.Unix(),
			fieldLastUpdate, now.Format(time.RFC3339Nano),
		)
		// state is meaningless once the window has reset
		pipe.ExpireAt(ctx, key, resetAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	remainingRequests.WithLabelValues(l.scope).Set(float64(remain))

	state := State{Known: true, Remaining: remain, ResetAt: resetAt, LastUpdate: now}
	switch {
	case state.NeedsBlock(l.opts.BlockThreshold):
		l.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Rate limit exhausted - requests will be blocked")
	case state.NeedsThrottling(l.opts.BlockThreshold, l.opts.ThrottleThreshold):
		l.logger.Info().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Rate limit low - requests will be throttled")
	default:
		l.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Rate limit state updated")
	}

	return nil
}

// Allow checks the stored state before a request. It returns false while
// the budget is exhausted and delays the caller when it runs low.
func (l *Limiter) Allow(ctx context.Context) (bool, time.Duration, error) {
	state, err := l.GetState(ctx)
	if err != nil {
		return false, 0, err
	}

	if state.NeedsBlock(l.opts.BlockThreshold) {
		wait := state.TimeUntilReset()
		blocksTotal.WithLabelValues(l.scope).Inc()
		l.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", wait).
			Msg("Rate limit exhausted - blocking request")
		return false, wait, nil
	}

	if state.NeedsThrottling(l.opts.BlockThreshold, l.opts.ThrottleThreshold) {
		throttlesTotal.WithLabelValues(l.scope).Inc()
		l.logger.Debug().
			Int("remaining", state.Remaining).
			Dur("delay", l.opts.ThrottleDelay).
			Msg("Rate limit low - throttling request")

		select {
		case <-ctx.Done():
			return false, 0, ctx.Err()
		case <-time.After(l.opts.ThrottleDelay):
		}
	}

	return true, 0, nil
}

// ParseRetryAfter returns the time a Retry-After header points to. It
// accepts delay seconds and HTTP dates.
func ParseRetryAfter(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	if at, err := http.ParseTime(value); err == nil {
		return at, true
	}
	return time.Time{}, false
}

var errInvalidReset = errors.New("invalid reset value")

// parseReset accepts either seconds until reset or a unix timestamp.
func parseReset(value string, now time.Time) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("parse %s header %q: %w", HeaderReset, value, errInvalidReset)
	}
	if n >= epochThreshold {
		return time.Unix(n, 0), nil
	}
	return now.Add(time.Duration(n) * time.Second), nil
}
