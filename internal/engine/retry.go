package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines the backoff applied between workflow attempts. There is
// no retry count here: the attempt budget is Config.MaxAttempts.
type RetryPolicy struct {
	InitialDelay time.Duration // Delay after the first transient failure
	MaxDelay     time.Duration // Maximum delay cap
	Multiplier   float64       // Exponential backoff multiplier (e.g., 2.0)
	Jitter       bool          // Whether to add random jitter to delays
}

// BackoffDelay computes the delay before the next attempt after err.
// failures is the number of consecutive transient failures so far (>= 1).
// Non-transient errors get no delay.
func BackoffDelay(policy RetryPolicy, failures int, err error) time.Duration {
	if !IsTransient(err) || policy.InitialDelay <= 0 {
		return 0
	}
	if failures < 1 {
		failures = 1
	}

	// Retry-After wins, capped at MaxDelay
	if retryAfter := ExtractRetryAfter(err); retryAfter > 0 {
		if policy.MaxDelay > 0 && retryAfter > policy.MaxDelay {
			return policy.MaxDelay
		}
		return retryAfter
	}

	multiplier := policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(policy.InitialDelay) * math.Pow(multiplier, float64(failures-1))

	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	// 0-20% jitter
	if policy.Jitter {
		delay += rand.Float64() * 0.2 * delay
	}

	return time.Duration(delay)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
