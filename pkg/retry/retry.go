package retry

import (
	"context"
	"math"
	"time"

	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

// Policy describes how an external call is retried. Zero values fall back to
// the defaults (3 attempts, 2s base delay doubling up to a 10s cap).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Retryable reports whether an error is transient. Nil means every error
	// is retried.
	Retryable func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// Do runs operation until it succeeds, a non-retryable error occurs, attempts
// are exhausted, or ctx is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, name string, operation func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		zlog.Warn("retrying after failure",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(math.Min(float64(p.MaxDelay), float64(delay)*p.Multiplier))
	}

	return lastErr
}

// DoWithResult is Do for operations that return a value.
func DoWithResult[T any](ctx context.Context, p Policy, name string, operation func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, name, func() error {
		var opErr error
		result, opErr = operation()
		return opErr
	})
	return result, err
}
