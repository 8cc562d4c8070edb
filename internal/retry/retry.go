// Package retry provides a generic bounded-retry executor with exponential
// backoff and jitter.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy controls retry behavior. Sleep and Jitter are injectable so tests
// can run without real delays.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; subsequent delays
	// double, scaled by the jitter multiplier.
	BaseDelay time.Duration

	// Retryable reports whether an error is worth retrying. Nil means every
	// error is retryable.
	Retryable func(error) bool

	// Sleep waits for the given duration or until the context is done.
	// Nil uses a timer-based default.
	Sleep func(context.Context, time.Duration) error

	// Jitter returns a multiplier applied to each delay. Nil uses a uniform
	// value in [0.5, 1.0), which avoids synchronized retry storms when
	// several callers fail at once.
	Jitter func() float64
}

// DefaultPolicy is the policy used for engine pushes and store mutations.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

// Do invokes fn up to p.MaxAttempts times, backing off between attempts.
// It returns fn's first success, or the last error once attempts are
// exhausted or the error is not retryable.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.BaseDelay << (attempt - 1)
		delay = time.Duration(float64(delay) * jitter())
		if err := sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func defaultJitter() float64 {
	return 0.5 + rand.Float64()*0.5
}
