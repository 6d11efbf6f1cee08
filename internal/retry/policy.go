// Package retry provides pluggable retry policies and an executor that runs
// operations with failure classification, terminal short-circuiting, and
// context-cancellable backoff.
package retry

import (
	"math/rand"
	"time"

	"github.com/cadence-hq/cadence/internal/failure"
)

// Policy decides whether a failed operation should be retried and how long to
// wait between attempts.
type Policy interface {
	// ShouldRetry reports whether the given failure warrants another attempt.
	ShouldRetry(fc *failure.Context) bool

	// Delay returns the wait before the given 0-indexed retry attempt.
	Delay(attempt int) time.Duration

	// MaxAttempts returns the maximum number of retry attempts.
	MaxAttempts() int
}

// ExponentialBackoff retries with exponentially growing delays, a cap, and
// symmetric jitter. When Modes is non-nil it acts as an allow-list overriding
// the mode's own retryability.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
	Attempts   int
	Modes      []failure.Mode
}

// NewExponentialBackoff returns the default exponential policy: 1s base, 60s
// cap, doubling, 10% jitter, 3 attempts.
func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:       time.Second,
		Max:        60 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
		Attempts:   3,
	}
}

// ShouldRetry retries while attempts remain and the mode is retryable (or
// allow-listed).
func (p *ExponentialBackoff) ShouldRetry(fc *failure.Context) bool {
	if fc.RetryCount >= p.Attempts {
		return false
	}
	if p.Modes != nil {
		for _, m := range p.Modes {
			if fc.Mode == m {
				return true
			}
		}
		return false
	}
	return fc.Mode.Retryable()
}

// Delay computes base * multiplier^attempt capped at Max, with symmetric
// jitter applied after the cap. Never negative.
func (p *ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := float64(p.Base)
	for i := 0; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.Max) {
			delay = float64(p.Max)
			break
		}
	}
	if delay > float64(p.Max) {
		delay = float64(p.Max)
	}

	if p.Jitter > 0 {
		jitter := delay * p.Jitter
		delay += (rand.Float64()*2 - 1) * jitter
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// MaxAttempts returns the configured attempt ceiling.
func (p *ExponentialBackoff) MaxAttempts() int {
	return p.Attempts
}

// LinearBackoff retries with a fixed delay between attempts.
type LinearBackoff struct {
	Interval time.Duration
	Attempts int
	Modes    []failure.Mode
}

// NewLinearBackoff returns the default linear policy: 2s delay, 3 attempts.
func NewLinearBackoff() *LinearBackoff {
	return &LinearBackoff{
		Interval: 2 * time.Second,
		Attempts: 3,
	}
}

// ShouldRetry retries while attempts remain and the mode is retryable (or
// allow-listed).
func (p *LinearBackoff) ShouldRetry(fc *failure.Context) bool {
	if fc.RetryCount >= p.Attempts {
		return false
	}
	if p.Modes != nil {
		for _, m := range p.Modes {
			if fc.Mode == m {
				return true
			}
		}
		return false
	}
	return fc.Mode.Retryable()
}

// Delay returns the fixed interval regardless of attempt.
func (p *LinearBackoff) Delay(attempt int) time.Duration {
	return p.Interval
}

// MaxAttempts returns the configured attempt ceiling.
func (p *LinearBackoff) MaxAttempts() int {
	return p.Attempts
}

// NoRetry is a fail-fast policy that never retries.
type NoRetry struct{}

// ShouldRetry always returns false.
func (NoRetry) ShouldRetry(fc *failure.Context) bool { return false }

// Delay always returns zero.
func (NoRetry) Delay(attempt int) time.Duration { return 0 }

// MaxAttempts always returns zero.
func (NoRetry) MaxAttempts() int { return 0 }
