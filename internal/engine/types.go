package engine

import (
	"context"
	"time"
)

// Operation names the stage an LLM call is made for.
type Operation string

const (
	OpPlan     Operation = "plan"
	OpGenerate Operation = "generate"
	OpReflect  Operation = "reflect"
)

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// CompletionRequest is the provider-agnostic request for one completion.
type CompletionRequest struct {
	Operation       Operation
	System          string  // Optional system instruction
	Prompt          string  // User prompt
	Temperature     float32 // 0 = provider default
	MaxOutputTokens int     // 0 = provider default
}

// CompletionResponse is a normalized result of one completion call.
type CompletionResponse struct {
	Text         string
	Model        string
	Usage        Usage
	FinishReason string // "stop" | "length" | "content_filter"
}

// LLMClient abstracts the text-generation service. Implementations must not
// retry internally: failed calls surface as failed workflow attempts.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// LLMCall describes one completed (or failed) call for hooks.
type LLMCall struct {
	Operation Operation
	Model     string
	Duration  time.Duration
	Usage     Usage
	Err       error
}

// Planner analyses the samples and records extracted text, expected table and analysis.
type Planner interface {
	Plan(ctx context.Context, st *State) Patch
}

// Generator produces one candidate program per call.
type Generator interface {
	Generate(ctx context.Context, st *State) Patch
}

// Validator persists and judges the current candidate.
type Validator interface {
	Validate(ctx context.Context, st *State) Patch
}

// Reflector turns a failed verdict into guidance for the next attempt.
type Reflector interface {
	Reflect(ctx context.Context, st *State) Patch
}

// instrumentedClient reports every call to a hook.
type instrumentedClient struct {
	next LLMClient
	hook Hook
}

// Instrument wraps an LLMClient so that every call is reported through hook.OnLLMCall.
func Instrument(llm LLMClient, hook Hook) LLMClient {
	if hook == nil {
		return llm
	}
	return &instrumentedClient{next: llm, hook: hook}
}

func (c *instrumentedClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	c.hook.OnLLMCall(ctx, LLMCall{
		Operation: req.Operation,
		Model:     resp.Model,
		Duration:  time.Since(start),
		Usage:     estimateUsage(req, resp),
		Err:       err,
	})
	return resp, err
}
