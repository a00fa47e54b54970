package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/prompts"
)

// Reflector turns the latest failure into guidance for the next attempt.
type Reflector struct {
	llm     engine.LLMClient
	prompts *prompts.PromptRegistry
	opts    Options
}

// NewReflector creates a Reflector.
func NewReflector(llm engine.LLMClient, reg *prompts.PromptRegistry, opts Options) *Reflector {
	return &Reflector{llm: llm, prompts: reg, opts: opts.withDefaults()}
}

// Reflect implements engine.Reflector.
func (r *Reflector) Reflect(ctx context.Context, st *engine.State) engine.Patch {
	b, err := prompts.NewPromptBuilder(r.prompts, prompts.ReflectionID)
	if err != nil {
		return engine.FailurePatch(engine.StageReflecting, err)
	}
	prompt, err := b.
		SetVariable("feedback", st.Feedback).
		SetVariable("attempt", fmt.Sprint(st.AttemptCount)).
		SetVariable("code_prefix", prefix(st.CandidateCode, r.opts.CodePrefix)).
		SetVariable("signature", r.opts.Language.Signature).
		Build()
	if err != nil {
		return engine.FailurePatch(engine.StageReflecting, err)
	}

	resp, err := r.llm.Complete(ctx, engine.CompletionRequest{
		Operation:       engine.OpReflect,
		System:          b.System(),
		Prompt:          prompt,
		Temperature:     reflectTemperature,
		MaxOutputTokens: reflectMaxTokens,
	})
	if err != nil {
		return engine.FailurePatch(engine.StageReflecting, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return engine.FailurePatch(engine.StageReflecting, errors.New("empty diagnosis"))
	}
	return engine.Patch{Feedback: engine.Str("Reflection feedback: " + text)}
}
