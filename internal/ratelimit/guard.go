package ratelimit

import (
	"context"
	"strings"
)

// Guarded is the guard any gateway-calling operation passes through for
// the throttling concern: it acquires permission for the operation class,
// runs fn, and feeds gateway-reported rate violations back into the
// limiter's backoff state.
func Guarded(ctx context.Context, l *Limiter, op Op, weight int, fn func(context.Context) error) error {
	if err := l.Acquire(ctx, op, weight); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && isRateViolation(err) {
		l.HandleRateLimitError(err.Error())
	}
	return err
}

// isRateViolation matches the gateway's pacing-violation message. The
// gateway reports these as plain error strings, so detection is textual.
func isRateViolation(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "rate") && strings.Contains(s, "limit")
}
