package httpx

import (
	"context"
	"math/rand/v2"
	"time"
)

// Default backoff parameters for transient-failure retries.
const (
	DefaultRetryAttempts = 3
	DefaultRetryBase     = 1 * time.Second
	DefaultRetryMaxDelay = 10 * time.Second

	// maxJitter bounds the random spread added to each delay so retries
	// from concurrent clients don't land on the same instant.
	maxJitter = 1 * time.Second
)

// RetryPolicy controls exponential backoff between repeated attempts at one
// operation. The zero value behaves like DefaultRetryPolicy().
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the backoff before the first retry; it doubles each
	// subsequent retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the backoff the authority's integration
// guidance asks clients to use: 1s base doubling to a 10s ceiling, three
// attempts in total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		BaseDelay:   DefaultRetryBase,
		MaxDelay:    DefaultRetryMaxDelay,
	}
}

// Attempts returns the effective total attempt count (at least one).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultRetryAttempts
	}
	return p.MaxAttempts
}

// Delay computes the wait after a failed attempt. attempt is zero-based, so
// Delay(0) is the wait before the first retry. The result is
// min(base·2^attempt, maxDelay) plus uniform jitter in [0, min(1s, delay)).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryBase
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultRetryMaxDelay
	}

	delay := maxDelay
	// Shift only while it cannot overflow past the cap
	if attempt < 32 {
		if d := base << uint(attempt); d > 0 && d < maxDelay {
			delay = d
		}
	}

	jitterCap := maxJitter
	if delay < jitterCap {
		jitterCap = delay
	}

	return delay + rand.N(jitterCap)
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
// Backoff waits must stay cancellable so a caller-supplied deadline cuts a
// retry loop short instead of sleeping through it.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
