// Package retry runs an operation under an explicit backoff policy.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ternarybob/arbor"
)

// Policy defines retry behavior with exponential backoff.
// The delay before retry k (0-indexed) is InitialDelay * BackoffFactor^k, capped by MaxDelay when set.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration // 0 = uncapped

	// RetryableErrors are matched with errors.Is
	RetryableErrors []error

	// RetryIf classifies errors not listed in RetryableErrors. Nil means only the list counts.
	RetryIf func(error) bool
}

// NewPolicy creates the default policy: 3 attempts, 1s initial delay, factor 2
func NewPolicy(retryable ...error) *Policy {
	return &Policy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: retryable,
	}
}

// Delay returns the wait before retry attempt (0-indexed)
func (p *Policy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(factor, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether err is in the retryable set
func (p *Policy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range p.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return false
}

// Do runs op until it succeeds, returns a non-retryable error, or attempts run out.
// The last error is returned as-is. Delays happen only between attempts.
func Do(ctx context.Context, p *Policy, logger arbor.ILogger, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value
func DoValue[T any](ctx context.Context, p *Policy, logger arbor.ILogger, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.ShouldRetry(err) {
			if logger != nil {
				logger.Debug().
					Int("attempt", attempt+1).
					Err(err).
					Msg("Non-retryable error, failing immediately")
			}
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		backoff := p.Delay(attempt)
		if logger != nil {
			logger.Debug().
				Int("attempt", attempt+1).
				Int("max_attempts", attempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}
	}

	if logger != nil {
		logger.Warn().
			Int("max_attempts", attempts).
			Err(lastErr).
			Msg("All retry attempts exhausted")
	}

	return zero, lastErr
}
