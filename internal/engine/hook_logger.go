// engine/hook_logger.go
package engine

import (
	"context"
	"log/slog"
	"time"
)

// LoggerHook writes a structured trace of a run.
type LoggerHook struct{ L *slog.Logger }

func (h LoggerHook) with(st *State) *slog.Logger {
	return h.L.With("run_id", st.RunID, "target", st.TargetID)
}

func (h LoggerHook) OnRunStart(_ context.Context, st *State) {
	h.with(st).Info("run started",
		"input", st.SampleInputPath,
		"expected", st.SampleExpectedPath,
		"output", st.OutputPath)
}
func (h LoggerHook) OnStageStart(_ context.Context, st *State) {
	h.with(st).Debug("stage start", "stage", st.Stage, "attempt", st.AttemptCount)
}
func (h LoggerHook) OnStageEnd(_ context.Context, st *State, p Patch) {
	l := h.with(st)
	switch st.Stage {
	case StagePlanning:
		if p.Err != nil {
			l.Error("planning failed", "error", p.Err)
			return
		}
		l.Info("planning complete", "text_chars", len(st.ExtractedText), "columns", st.Columns())
	case StageGenerating:
		if p.Err != nil {
			l.Error("code generation failed", "attempt", st.AttemptCount, "error", p.Err)
			return
		}
		l.Info("code generated", "attempt", st.AttemptCount, "chars", len(st.CandidateCode))
	case StageReflecting:
		if p.Err != nil {
			l.Error("reflection failed", "error", p.Err)
			return
		}
		l.Info("reflection complete", "feedback_chars", len(st.Feedback))
	}
}
func (h LoggerHook) OnLLMCall(_ context.Context, c LLMCall) {
	if c.Err != nil {
		h.L.Warn("llm call failed", "op", c.Operation, "duration", c.Duration, "error", c.Err)
		return
	}
	h.L.Debug("llm call", "op", c.Operation, "model", c.Model, "duration", c.Duration,
		"prompt_tokens", c.Usage.Prompt, "completion_tokens", c.Usage.Completion)
}
func (h LoggerHook) OnVerdict(_ context.Context, st *State, v Verdict) {
	if v.Passed() {
		h.with(st).Info("candidate accepted", "attempt", st.AttemptCount, "message", v.Message)
		return
	}
	h.with(st).Warn("candidate rejected", "attempt", st.AttemptCount, "message", v.Message)
}
func (h LoggerHook) OnTransition(_ context.Context, st *State, from, to Stage) {
	h.with(st).Debug("transition", "from", from, "to", to)
}
func (h LoggerHook) OnBackoff(_ context.Context, st *State, d time.Duration, err error) {
	h.with(st).Warn("backing off before next attempt", "delay", d, "error", err)
}
func (h LoggerHook) OnRunEnd(_ context.Context, st *State, res Result) {
	l := h.with(st)
	if res.Success {
		l.Info("run succeeded", "attempts", res.Attempts, "output", res.OutputPath)
		return
	}
	l.Error("run failed", "attempts", res.Attempts, "stage", res.Stage, "last_feedback", Truncate(res.LastFeedback, 200))
}
