// Package retry defines the backoff policy applied between request attempts.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy bounds how many attempts are made and how long to wait between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter adjusts a computed delay. Nil leaves the delay unchanged. A
	// jitter that maps d into [d/2, d] keeps Delay non-decreasing.
	Jitter func(time.Duration) time.Duration
}

// Default returns the policy used when nothing is configured.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Attempts returns the attempt budget, never less than one.
func (p Policy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait before the attempt following failed attempt n
// (1-based): BaseDelay*2^(n-1) passed through Jitter, then capped at
// MaxDelay. Jitter works on the uncapped step, so with EqualJitter each delay
// is at least the previous step and the sequence never shrinks.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	// Doubling stops once even a halved jitter draw would exceed the cap.
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay >= 2*p.MaxDelay {
			break
		}
		if delay > math.MaxInt64/4 {
			break
		}
		delay *= 2
	}
	if p.Jitter != nil {
		delay = p.Jitter(delay)
	}
	return p.capDelay(delay)
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// EqualJitter keeps half the delay and randomizes the other half. The result
// stays within [d/2, d].
func EqualJitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(d-half+1)
}

// Sleeper blocks for the given duration or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
