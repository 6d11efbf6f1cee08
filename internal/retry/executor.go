package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadence-hq/cadence/internal/failure"
)

// Executor runs operations under a retry policy. Failures are classified into
// the taxonomy; terminal modes abort immediately, retryable ones back off and
// try again until the policy declines.
type Executor struct {
	policy Policy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the structured logger used for retry events.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithSleep overrides the backoff sleep function. Intended for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates an Executor with the given policy.
func NewExecutor(policy Policy, opts ...ExecutorOption) *Executor {
	e := &Executor{
		policy: policy,
		logger: slog.Default(),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs op under the retry policy. The operation is attempted up to
// MaxAttempts+1 times (the initial call plus retries). On failure the error is
// classified; terminal modes and policy declines surface immediately as a
// *failure.Error carrying the full context. The backoff sleep honors ctx
// cancellation.
func (e *Executor) Execute(ctx context.Context, stage failure.Stage, name string, op func(context.Context) error) error {
	var last *failure.Context

	for attempt := 0; attempt <= e.policy.MaxAttempts(); attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation succeeded after retry",
					"operation", name,
					"attempt", attempt)
			}
			return nil
		}

		fc := failure.FromError(err, stage, "")
		fc.RetryCount = attempt
		fc.Operation = name
		last = fc

		if fc.Mode.Terminal() {
			e.logger.Error("terminal failure, aborting",
				"operation", name,
				"mode", fc.Mode,
				"stage", stage,
				"error", err)
			return fc.Err()
		}

		if !e.policy.ShouldRetry(fc) {
			e.logger.Warn("retry policy declined",
				"operation", name,
				"mode", fc.Mode,
				"attempt", attempt,
				"error", err)
			return fc.Err()
		}

		delay := e.policy.Delay(attempt)
		e.logger.Info("retrying after failure",
			"operation", name,
			"mode", fc.Mode,
			"attempt", attempt,
			"delay", delay)

		if delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				fc := failure.FromError(err, stage, failure.UserCancelled)
				fc.RetryCount = attempt
				fc.Operation = name
				return fc.Err()
			}
		}
	}

	if last != nil {
		return last.Err()
	}
	return fmt.Errorf("retry loop exited without result for %s", name)
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FromStrategy builds a policy by name: "exponential", "linear", or "none".
// maxAttempts applies to the backoff strategies.
func FromStrategy(strategy string, maxAttempts int) (Policy, error) {
	switch strategy {
	case "exponential":
		p := NewExponentialBackoff()
		if maxAttempts > 0 {
			p.Attempts = maxAttempts
		}
		return p, nil
	case "linear":
		p := NewLinearBackoff()
		if maxAttempts > 0 {
			p.Attempts = maxAttempts
		}
		return p, nil
	case "none":
		return NoRetry{}, nil
	default:
		return nil, fmt.Errorf("unknown retry strategy: %s", strategy)
	}
}
