package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// Do executes fn with exponential back-off retry logic. The delay starts at
// BaseDelay and doubles after every failed attempt.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if r.Retryable != nil && !r.Retryable(lastErr) {
			return fmt.Errorf("%s failed on attempt %d (not retryable): %w", operationName, attempt, lastErr)
		}

		if attempt < attempts {
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s interrupted after %d attempts: %w", operationName, attempt, err)
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
