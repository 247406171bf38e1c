package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gsokit/gsoscope/internal/core"
)

// RetryPolicy configures exponential backoff around one fallible operation.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	CapDelay   time.Duration
	// Jitter is the +/- fraction applied to each delay (0-1).
	Jitter float64

	// IsTransient decides which errors are retried. Defaults to core.IsTransient.
	IsTransient func(error) bool
	// Backoff overrides the delay computation for retry k (0-based).
	Backoff func(k int) time.Duration
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)

	Sleep SleepFunc
	Rand  func() float64
}

// Retry runs op until it succeeds, fails with a non-transient error, or
// exhausts MaxRetries. It returns the number of attempts made. Exhaustion
// yields a *core.RetryError wrapping the last error.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	isTransient := policy.IsTransient
	if isTransient == nil {
		isTransient = core.IsTransient
	}

	maxAttempts := policy.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return zero, attempt - 1, err
			}
			return zero, attempt - 1, &core.RetryError{Attempts: attempt - 1, Err: fmt.Errorf("%w (last error: %v)", err, lastErr)}
		}

		value, err := op(ctx)
		if err == nil {
			return value, attempt, nil
		}
		lastErr = err

		if !isTransient(err) {
			return zero, attempt, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := policy.delay(attempt-1, err)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return zero, attempt, &core.RetryError{Attempts: attempt, Err: fmt.Errorf("%w (last error: %v)", err, lastErr)}
		}
	}

	return zero, maxAttempts, &core.RetryError{Attempts: maxAttempts, Err: lastErr}
}

// delay returns min(cap, base*2^k) with jitter, floored by any Retry-After
// carried on err.
func (p RetryPolicy) delay(k int, err error) time.Duration {
	var d time.Duration
	if p.Backoff != nil {
		d = p.Backoff(k)
	} else {
		d = ExponentialBackoff(p.BaseDelay, p.CapDelay, k)
		if p.Jitter > 0 && d > 0 {
			r := p.random()
			factor := 1 + p.Jitter*(2*r-1)
			d = time.Duration(math.Round(float64(d) * factor))
		}
	}
	if floor := core.RetryAfterOf(err); floor > d {
		d = floor
	}
	if d < 0 {
		d = 0
	}
	return d
}

// ExponentialBackoff returns min(capDelay, base*2^k). A zero cap leaves the
// delay unbounded.
func ExponentialBackoff(base, capDelay time.Duration, k int) time.Duration {
	if base <= 0 {
		return 0
	}
	scaled := float64(base) * math.Pow(2, float64(k))
	if capDelay > 0 && scaled > float64(capDelay) {
		return capDelay
	}
	if scaled > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (p RetryPolicy) random() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}
