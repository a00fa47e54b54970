package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/prompts"
)

// Generator asks the model for one candidate parser per call.
type Generator struct {
	llm     engine.LLMClient
	prompts *prompts.PromptRegistry
	opts    Options
}

// NewGenerator creates a Generator.
func NewGenerator(llm engine.LLMClient, reg *prompts.PromptRegistry, opts Options) *Generator {
	return &Generator{llm: llm, prompts: reg, opts: opts.withDefaults()}
}

// Generate implements engine.Generator. Any failure yields an empty candidate
// and feedback naming the cause.
func (g *Generator) Generate(ctx context.Context, st *engine.State) engine.Patch {
	prompt, system, err := g.buildPrompt(st)
	if err != nil {
		return engine.FailurePatch(engine.StageGenerating, err)
	}

	resp, err := g.llm.Complete(ctx, engine.CompletionRequest{
		Operation:       engine.OpGenerate,
		System:          system,
		Prompt:          prompt,
		Temperature:     genTemperature,
		MaxOutputTokens: genMaxTokens,
	})
	if err != nil {
		return engine.FailurePatch(engine.StageGenerating, err)
	}

	code := engine.ExtractCode(resp.Text)
	if code == "" {
		err := errors.New("model returned no code")
		if resp.FinishReason != "" && resp.FinishReason != "stop" {
			err = fmt.Errorf("model returned no code (finish reason %s)", resp.FinishReason)
		}
		return engine.FailurePatch(engine.StageGenerating, err)
	}
	if resp.FinishReason == "length" {
		g.opts.Logger.Warn("candidate may be truncated", "target", st.TargetID, "attempt", st.AttemptCount)
	}
	return engine.Patch{CandidateCode: engine.Str(code)}
}

func (g *Generator) buildPrompt(st *engine.State) (prompt, system string, err error) {
	b, err := prompts.NewPromptBuilder(g.prompts, prompts.GenerationID)
	if err != nil {
		return "", "", err
	}

	lang := g.opts.Language
	columns, sampleRows, sampleCount := "(unknown: expected table not loaded)", "(unavailable)", "0"
	if st.ExpectedTable != nil {
		sample := st.ExpectedTable.Head(g.opts.GenSampleRows)
		columns = formatColumns(st.ExpectedTable.Columns)
		sampleRows = sample.String()
		sampleCount = fmt.Sprint(sample.Len())
	}
	text := prefix(st.ExtractedText, g.opts.GenTextPrefix)
	if text == "" {
		text = "(unavailable)"
	}

	b.SetVariable("language", lang.Name).
		SetVariable("target", st.TargetID).
		SetVariable("signature", lang.Signature).
		SetVariable("columns", columns).
		SetVariable("sample_count", sampleCount).
		SetVariable("sample_rows", sampleRows).
		SetVariable("text_prefix", text)

	if st.Analysis != "" {
		b.AddFragment("Structural analysis of the statement:\n" + st.Analysis)
	}
	b.AddFragment(formatFeedback(st.FeedbackHistory))
	b.AddFragment(prompts.GenerationTrailer)

	prompt, err = b.Build()
	if err != nil {
		return "", "", err
	}
	return prompt, b.System(), nil
}

// formatFeedback renders the retained feedback, most recent last.
func formatFeedback(history []string) string {
	switch len(history) {
	case 0:
		return ""
	case 1:
		return "Previous error feedback: " + history[0]
	}
	var sb strings.Builder
	sb.WriteString("Previous error feedback (oldest first):")
	for i, f := range history {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, f)
	}
	return sb.String()
}
