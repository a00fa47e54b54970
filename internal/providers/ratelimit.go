package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

// RateLimited spaces out calls to an LLMClient so that a batch of runs stays
// under a provider's requests-per-minute quota.
type RateLimited struct {
	next    engine.LLMClient
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limit of rpm requests per minute. A
// non-positive rpm returns next unchanged.
func NewRateLimited(next engine.LLMClient, rpm int) engine.LLMClient {
	if rpm <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Complete waits for a token, then delegates.
func (r *RateLimited) Complete(ctx context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return engine.CompletionResponse{}, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Complete(ctx, req)
}
