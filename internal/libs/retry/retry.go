package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"go.uber.org/zap"
)

// Policy configures the exponential-backoff wrapper: initial delay, base,
// max delay, max attempts, and an optional retryable-kind filter.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Base         float64
	MaxDelay     time.Duration
	// Retryable reports whether err should be retried. A nil Retryable
	// retries every error except circuitbreaker.ErrOpen, which is never
	// retried — a circuit-open is a first-class outcome, not an exception
	// to retry.
	Retryable func(err error) bool
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Base, float64(attempt))
	if time.Duration(d) > p.MaxDelay && p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs fn under the policy, logging before each sleep and reraising the
// final error after the last attempt. It never retries circuitbreaker.ErrOpen.
func Do(ctx context.Context, log *logger.Logger, name string, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, circuitbreaker.ErrOpen) {
			return lastErr
		}

		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts-1 {
			break
		}

		wait := policy.delay(attempt)
		if log != nil {
			log.Warn("retrying after failure",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}
