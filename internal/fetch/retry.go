// Package fetch shields upstream calls with bounded retries and exponential
// backoff. A Retryer holds no state between calls; exhausting all attempts
// yields a *FetchError that callers treat as "source unavailable", never as
// a fatal condition.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// RetryPolicy governs how a Retryer spaces its attempts. It is stateless
// configuration, never mutated at runtime.
type RetryPolicy struct {
	MaxAttempts       int           // total attempts, including the first; ≥1
	BaseDelay         time.Duration // wait before the second attempt
	BackoffMultiplier float64       // growth factor per retry; >1
}

// Validate rejects policies that would retry forever or not at all.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: MaxAttempts %d < 1", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry policy: BaseDelay %s must be positive", p.BaseDelay)
	}
	if p.BackoffMultiplier <= 1 {
		return fmt.Errorf("retry policy: BackoffMultiplier %g must exceed 1", p.BackoffMultiplier)
	}
	return nil
}

// Delay returns the wait after the given zero-based failed attempt:
// BaseDelay * BackoffMultiplier^attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt)))
}

// FetchError reports an upstream call that failed every allowed attempt.
// It carries the last underlying failure.
type FetchError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: exhausted %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryer executes operations under a RetryPolicy. Waits block the calling
// goroutine via the injected clock, so tests can drive them with a fake.
type Retryer struct {
	policy  RetryPolicy
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRetryer creates a Retryer. Pass clockwork.NewRealClock() outside tests.
func NewRetryer(policy RetryPolicy, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Retryer {
	return &Retryer{
		policy:  policy,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Do runs op until it succeeds or the policy's attempts are exhausted,
// waiting Delay(i) after the i-th failure. On exhaustion it returns a
// *FetchError wrapping the last failure; a context cancellation during a
// wait also ends the operation.
func (r *Retryer) Do(ctx context.Context, operation string, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := r.policy.Delay(attempt - 1)
			r.logger.Warn("upstream call failed, backing off",
				"operation", operation,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			if !r.sleep(ctx, wait) {
				return &FetchError{Operation: operation, Attempts: attempt, Err: ctx.Err()}
			}
		}

		r.metrics.RetryAttempts.WithLabelValues(operation).Inc()
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
	}

	r.metrics.RetryExhausted.WithLabelValues(operation).Inc()
	r.logger.Error("upstream call exhausted all attempts",
		"operation", operation,
		"attempts", r.policy.MaxAttempts,
		"error", lastErr,
	)
	return &FetchError{Operation: operation, Attempts: r.policy.MaxAttempts, Err: lastErr}
}

// sleep blocks for d on the injected clock. Returns false if the context
// was cancelled first.
func (r *Retryer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-r.clock.After(d):
		return true
	}
}
