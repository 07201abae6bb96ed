package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	defaults := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
	return c
}

// ForErrorClass scales the backoff for an error class: rate limits back off
// longest, network errors longer than server errors.
func (c RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassRateLimit:
		c.InitialBackoff *= 4
		c.MaxBackoff *= 4
	case ErrorClassNetwork:
		c.InitialBackoff *= 2
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	return c
}

// attemptFunc performs one attempt and classifies its failure.
type attemptFunc func(attempt int) (ErrorClass, error)

// retryWithBackoff runs fn until it succeeds, fails with a class that is
// not retried, or runs out of attempts. Backoff is exponential with ±20%
// jitter; a server-requested RetryAfter is honoured up to MaxBackoff.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn attemptFunc) error {
	config = config.withDefaults()

	var (
		lastErr   error
		lastClass ErrorClass
		backoff   time.Duration
	)

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		errorClass, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if !shouldRetry(errorClass) {
			return err
		}

		classConfig := config.ForErrorClass(errorClass)
		if errorClass != lastClass {
			backoff = classConfig.InitialBackoff
		}
		lastErr, lastClass = err, errorClass

		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > wait {
			wait = min(httpErr.RetryAfter, classConfig.MaxBackoff)
		}
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		logger.Debug().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * classConfig.BackoffMultiplier)
		if backoff > classConfig.MaxBackoff {
			backoff = classConfig.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Err(lastErr).
		Str("error_class", string(lastClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
