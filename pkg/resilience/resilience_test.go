package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

var retryCfg = config.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

func Test_Retry(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")

	testCases := []struct {
		name          string
		failures      int
		failWith      error
		expectedCalls int
		expectedErr   error
	}{
		{name: "Success first try", failures: 0, expectedCalls: 1},
		{name: "Success after retries", failures: 2, failWith: errTransient, expectedCalls: 3},
		{name: "Exhausted", failures: 5, failWith: errTransient, expectedCalls: 3, expectedErr: errTransient},
		{name: "Permanent", failures: 5, failWith: Permanent(errFatal), expectedCalls: 1, expectedErr: errFatal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			calls := 0
			op := func() error {
				calls++
				if calls <= tc.failures {
					return tc.failWith
				}
				return nil
			}

			// when
			err := Retry(context.Background(), retryCfg, op)

			// then
			assert.Equal(t, tc.expectedCalls, calls)
			if tc.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expectedErr)
			}
		})
	}
}

func Test_Retry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, config.RetryConfig{MaxAttempts: 10, InitialBackoff: time.Second}, func() error {
		calls++
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func Test_MaxDelay(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      config.RetryConfig
		expected time.Duration
	}{
		{name: "Single attempt never waits", cfg: config.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Second}},
		{name: "Three attempts", cfg: config.RetryConfig{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond}, expected: 375 * time.Millisecond},
		{name: "Interval is capped", cfg: config.RetryConfig{MaxAttempts: 2, InitialBackoff: 10 * time.Minute}, expected: 90 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			got := MaxDelay(tc.cfg)

			// then
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_NewCircuitBreaker_Trips(t *testing.T) {
	// given
	cb := NewCircuitBreaker[any]("test", config.CircuitBreakerConfig{
		ConsecutiveFailures: 2,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	}, nil)
	fail := func() (any, error) { return nil, errors.New("down") }

	// when
	for range 3 {
		_, _ = cb.Execute(fail)
	}
	_, err := cb.Execute(func() (any, error) { return nil, nil })

	// then
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
