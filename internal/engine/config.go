package engine

import (
	"fmt"
	"time"
)

// Config holds all orchestrator configuration options.
type Config struct {
	MaxAttempts     int           // Generate/Test cycles before giving up (default: 3)
	StepTimeout     time.Duration // Bound for each component call (0 = no bound)
	FeedbackHistory int           // Feedback entries carried into generation (default: 1, latest only)
	Backoff         RetryPolicy   // Delay before regenerating after a transient service error
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		StepTimeout:     2 * time.Minute,
		FeedbackHistory: 1,
		Backoff:         DefaultBackoffPolicy(),
	}
}

// Validate checks the configuration for values the loop cannot run with.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.StepTimeout < 0 {
		return fmt.Errorf("step timeout must not be negative, got %v", c.StepTimeout)
	}
	if c.FeedbackHistory < 0 {
		return fmt.Errorf("feedback history must not be negative, got %d", c.FeedbackHistory)
	}
	return nil
}

// DefaultBackoffPolicy returns the inter-attempt backoff used after transient LLM errors.
func DefaultBackoffPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}
