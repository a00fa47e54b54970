package history

import (
	"context"
	"io"
	"log/slog"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

// Hook records runs and attempts in a Store. Write failures are logged and
// never interrupt a run.
type Hook struct {
	engine.NopHook
	store  *Store
	logger *slog.Logger
}

// NewHook creates a Hook writing to store.
func NewHook(store *Store, logger *slog.Logger) *Hook {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hook{store: store, logger: logger}
}

func (h *Hook) OnRunStart(ctx context.Context, st *engine.State) {
	if err := h.store.StartRun(ctx, st.RunID, st.TargetID, st.OutputPath); err != nil {
		h.logger.Warn("history: start run", "run_id", st.RunID, "error", err)
	}
}

func (h *Hook) OnVerdict(ctx context.Context, st *engine.State, v engine.Verdict) {
	err := h.store.RecordAttempt(ctx, Attempt{
		RunID:      st.RunID,
		Attempt:    st.AttemptCount,
		Verdict:    string(v.Status),
		Message:    v.Message,
		Feedback:   st.Feedback,
		CodeLength: len(st.CandidateCode),
	})
	if err != nil {
		h.logger.Warn("history: record attempt", "run_id", st.RunID, "attempt", st.AttemptCount, "error", err)
	}
}

func (h *Hook) OnRunEnd(ctx context.Context, st *engine.State, res engine.Result) {
	// The run context may already be done; the outcome is still worth keeping.
	ctx = context.WithoutCancel(ctx)
	if err := h.store.FinishRun(ctx, res.RunID, res.Success, res.Attempts, res.LastFeedback); err != nil {
		h.logger.Warn("history: finish run", "run_id", res.RunID, "error", err)
	}
}
