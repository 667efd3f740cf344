package graph

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures node-local retry behavior.
// The executor itself never retries; a node opts in by wrapping its body with Retry.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: func(_ error) bool {
			// By default, retry all errors
			return true
		},
	}
}

// Retry wraps a node body so that failures are retried with exponential backoff.
// The last error is returned once the attempts are exhausted.
func Retry[S any](fn NodeFunc[S], config *RetryConfig) NodeFunc[S] {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	return func(ctx context.Context, state S) (Update, error) {
		var lastErr error
		delay := config.InitialDelay

		for attempt := 1; attempt <= attempts; attempt++ {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			default:
			}

			update, err := fn(ctx, state)
			if err == nil {
				return update, nil
			}
			lastErr = err

			if config.RetryableErrors != nil && !config.RetryableErrors(err) {
				return nil, err
			}

			// Don't sleep after the last attempt
			if attempt < attempts {
				select {
				case <-time.After(delay):
					delay = time.Duration(float64(delay) * config.BackoffFactor)
					if config.MaxDelay > 0 {
						delay = min(delay, config.MaxDelay)
					}
				case <-ctx.Done():
					return nil, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
				}
			}
		}

		return nil, fmt.Errorf("max retries (%d) exceeded: %w", attempts, lastErr)
	}
}

// Timeout wraps a node body so that it runs under a context deadline.
// The body must honor ctx for the deadline to take effect.
func Timeout[S any](fn NodeFunc[S], timeout time.Duration) NodeFunc[S] {
	if timeout <= 0 {
		return fn
	}
	return func(ctx context.Context, state S) (Update, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(ctx, state)
	}
}
