package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/document"
	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/prompts"
	"github.com/ChamsBouzaiene/parsegen/internal/table"
)

// Planner loads the samples and asks the model for a structural analysis.
type Planner struct {
	llm       engine.LLMClient
	extractor document.Extractor
	loader    table.Loader
	prompts   *prompts.PromptRegistry
	opts      Options
}

// NewPlanner creates a Planner.
func NewPlanner(llm engine.LLMClient, extractor document.Extractor, loader table.Loader, reg *prompts.PromptRegistry, opts Options) *Planner {
	return &Planner{llm: llm, extractor: extractor, loader: loader, prompts: reg, opts: opts.withDefaults()}
}

// Plan implements engine.Planner. Failing to read either sample fails the
// step; a failed analysis call only leaves the analysis empty.
func (p *Planner) Plan(ctx context.Context, st *engine.State) engine.Patch {
	text, err := p.extractor.Extract(ctx, st.SampleInputPath)
	if err != nil {
		return engine.FailurePatch(engine.StagePlanning, fmt.Errorf("extract %s: %w", st.SampleInputPath, err))
	}
	expected, err := p.loader.Load(st.SampleExpectedPath)
	if err != nil {
		return engine.FailurePatch(engine.StagePlanning, err)
	}

	patch := engine.Patch{ExtractedText: engine.Str(text), ExpectedTable: expected}

	analysis, err := p.analyse(ctx, st.TargetID, text, expected)
	if err != nil {
		p.opts.Logger.Warn("structure analysis unavailable", "target", st.TargetID, "error", err)
		return patch
	}
	patch.Analysis = engine.Str(analysis)
	return patch
}

func (p *Planner) analyse(ctx context.Context, target, text string, expected *table.Table) (string, error) {
	b, err := prompts.NewPromptBuilder(p.prompts, prompts.PlanningID)
	if err != nil {
		return "", err
	}
	sample := expected.Head(p.opts.PlanSampleRows)
	prompt, err := b.
		SetVariable("target", target).
		SetVariable("text_chars", fmt.Sprint(p.opts.PlanTextPrefix)).
		SetVariable("text_prefix", prefix(text, p.opts.PlanTextPrefix)).
		SetVariable("columns", formatColumns(expected.Columns)).
		SetVariable("sample_count", fmt.Sprint(sample.Len())).
		SetVariable("sample_rows", sample.String()).
		Build()
	if err != nil {
		return "", err
	}

	resp, err := p.llm.Complete(ctx, engine.CompletionRequest{
		Operation:       engine.OpPlan,
		System:          b.System(),
		Prompt:          prompt,
		Temperature:     planTemperature,
		MaxOutputTokens: planMaxTokens,
	})
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return "", fmt.Errorf("empty analysis")
	}
	a, err := ParseAnalysis(reply)
	if err != nil {
		// Free-form analyses are still useful context.
		p.opts.Logger.Debug("analysis kept as text", "target", target, "reason", err)
		return reply, nil
	}
	return a.Render(expected.Columns), nil
}

// formatColumns renders column names as a quoted list: ['Date', 'Balance'].
func formatColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "'" + c + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
