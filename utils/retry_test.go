package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("permanent")

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewTestLogger(t)}

	calls := 0
	err := r.Do(context.Background(), "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewTestLogger(t)}
	cause := errors.New("boom")

	calls := 0
	err := r.Do(context.Background(), "always-fails", func(context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	r := &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Logger:      NewTestLogger(t),
		Retryable:   func(err error) bool { return !errors.Is(err, errPermanent) },
	}

	calls := 0
	err := r.Do(context.Background(), "permanent", func(context.Context) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryBackoffDoubles(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, Logger: NewNopLogger()}

	var stamps []time.Time
	_ = r.Do(context.Background(), "timed", func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("fail")
	})

	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetryHonoursContext(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, Logger: NewNopLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, "cancelled", func(context.Context) error {
		calls++
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
