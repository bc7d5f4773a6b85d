// Package resilience provides retry and circuit breaker helpers for calls to external systems.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Permanent wraps err so that Retry gives up immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op with exponential backoff until it succeeds, returns a Permanent error,
// ctx is done or cfg.MaxAttempts attempts have been made.
func Retry(ctx context.Context, cfg config.RetryConfig, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialBackoff
	eb.MaxElapsedTime = 0

	var policy backoff.BackOff = eb
	if cfg.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1))
	}
	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// MaxDelay is the longest total time Retry can spend waiting between attempts of one call.
func MaxDelay(cfg config.RetryConfig) time.Duration {
	var total time.Duration
	interval := float64(cfg.InitialBackoff)
	for i := uint(1); i < cfg.MaxAttempts; i++ {
		wait := min(interval, float64(backoff.DefaultMaxInterval))
		total += time.Duration(wait * (1 + backoff.DefaultRandomizationFactor))
		interval *= backoff.DefaultMultiplier
	}
	return total
}

// NewCircuitBreaker creates a breaker that trips after cfg.ConsecutiveFailures consecutive failures,
// or when the failure ratio exceeds cfg.ErrorRatePercent once enough requests were seen.
// isSuccessful decides which errors count as failures; nil counts every error.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: isSuccessful,
	}
	return gobreaker.NewCircuitBreaker[T](st)
}
