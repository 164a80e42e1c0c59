package monitor

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy configures WithRetry.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Base delay for exponential backoff between attempts
}

// DefaultRetryPolicy returns sensible defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// WithRetry is the guard any gateway-calling operation passes through for
// the connection concern. If the monitor is not connected it triggers one
// reconnection sequence and proceeds regardless of outcome. Connection-class
// failures are retried with exponential backoff; any other failure
// propagates immediately.
func WithRetry(ctx context.Context, m *Monitor, policy RetryPolicy, op func(context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if !m.IsConnected() {
			m.logger.Warn("connection not available, attempting reconnect")
			m.Reconnect(ctx)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsConnectionError(err) {
			return err
		}
		lastErr = err

		m.logger.Warn("operation failed",
			"attempt", attempt+1,
			"max", policy.MaxAttempts,
			"error", err,
		)

		if attempt < policy.MaxAttempts-1 {
			delay := policy.BaseDelay << attempt
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
