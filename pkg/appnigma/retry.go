package appnigma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds a caller-level retry loop around single-call
// operations. The zero value is not usable; start from DefaultRetryPolicy.
//
// Delays follow the standard exponential schedule
// InitialInterval × 2^attempt, capped at MaxInterval. Rate-limited (429)
// failures wait RateLimitFactor times the standard delay, and at least
// QuotaExhaustedWait when the 429 details show the quota fully consumed.
type RetryPolicy struct {
	MaxRetries         int
	InitialInterval    time.Duration
	MaxInterval        time.Duration
	RateLimitFactor    float64
	QuotaExhaustedWait time.Duration

	// Sleep waits for the given delay or until ctx is done. Overridable in
	// tests; nil means a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used when callers have no specific
// requirements: 3 retries, 500ms initial delay doubling up to 30s, 429
// delays lengthened 4x.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:         3,
		InitialInterval:    500 * time.Millisecond,
		MaxInterval:        30 * time.Second,
		RateLimitFactor:    4,
		QuotaExhaustedWait: time.Minute,
	}
}

// MaxRetriesError reports that a retry loop gave up. It wraps the last
// underlying error so callers can distinguish "gave up" from "server said
// no" while still inspecting the final failure.
type MaxRetriesError struct {
	Attempts int
	Err      error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("appnigma: max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() error {
	return e.Err
}

// Retry runs op until it succeeds, fails terminally, or the retry budget is
// spent. Classification is a pure function of the error's class tag:
// terminal errors return immediately, transient errors wait the standard
// exponential delay, rate-limited errors wait the lengthened delay.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	p := policy.withDefaults()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.InitialInterval
	expBackoff.MaxInterval = p.MaxInterval
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0
	expBackoff.Reset()

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		class := Classify(err)
		if class == ClassTerminal {
			return zero, err
		}

		if attempt >= p.MaxRetries {
			return zero, &MaxRetriesError{Attempts: attempt + 1, Err: err}
		}

		delay := expBackoff.NextBackOff()
		if delay == backoff.Stop {
			delay = p.MaxInterval
		}
		if class == ClassRateLimited {
			delay = time.Duration(float64(delay) * p.RateLimitFactor)
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Details.Exhausted() && delay < p.QuotaExhaustedWait {
				delay = p.QuotaExhaustedWait
			}
		}

		if err := p.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.RateLimitFactor < 1 {
		p.RateLimitFactor = def.RateLimitFactor
	}
	if p.QuotaExhaustedWait <= 0 {
		p.QuotaExhaustedWait = def.QuotaExhaustedWait
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
