package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
	transient := errors.New("503 service unavailable")

	assert.Equal(t, time.Second, BackoffDelay(policy, 1, transient))
	assert.Equal(t, 2*time.Second, BackoffDelay(policy, 2, transient))
	assert.Equal(t, 4*time.Second, BackoffDelay(policy, 3, transient))
	assert.Equal(t, 10*time.Second, BackoffDelay(policy, 10, transient))

	assert.Zero(t, BackoffDelay(policy, 1, errors.New("invalid request")))
	assert.Zero(t, BackoffDelay(policy, 1, nil))
	assert.Zero(t, BackoffDelay(RetryPolicy{}, 1, transient))
}

func TestBackoffDelay_RetryAfterIsCapped(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
	err := WrapLLMError(errors.New("429"), 429, "120")
	assert.Equal(t, 10*time.Second, BackoffDelay(policy, 1, err))
}

func TestBackoffDelay_JitterStaysWithinBounds(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: true}
	transient := errors.New("timeout")
	for i := 0; i < 50; i++ {
		d := BackoffDelay(policy, 1, transient)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestContextSleep(t *testing.T) {
	assert.NoError(t, ContextSleep(context.Background(), 0))
	assert.NoError(t, ContextSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextSleep(ctx, time.Hour), context.Canceled)
}
