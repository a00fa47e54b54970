package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestStore_Pragmas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.StartRun(ctx, "r1", "icici", "out/icici_parser.py"))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{RunID: "r1", Attempt: 1, Verdict: "error", Message: "missing", Feedback: "Generated code missing def parse() function", CodeLength: 10}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{RunID: "r1", Attempt: 2, Verdict: "success", Message: "Parser generated successfully", CodeLength: 420}))
	require.NoError(t, s.FinishRun(ctx, "r1", true, 2, "Parser generated successfully"))

	runs, err := s.ListRuns(ctx, "icici", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "r1", r.RunID)
	assert.True(t, r.Success)
	assert.Equal(t, 2, r.Attempts)
	assert.Equal(t, "out/icici_parser.py", r.OutputPath)
	assert.True(t, r.FinishedAt.After(r.StartedAt))

	attempts, err := s.Attempts(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].Attempt)
	assert.Equal(t, "error", attempts[0].Verdict)
	assert.Equal(t, 420, attempts[1].CodeLength)
	assert.Empty(t, attempts[1].Feedback)
}

func TestStore_ListRunsFilterAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.StartRun(ctx, "a", "icici", "o"))
	require.NoError(t, s.StartRun(ctx, "b", "sbi", "o"))
	require.NoError(t, s.StartRun(ctx, "c", "icici", "o"))

	runs, err := s.ListRuns(ctx, "icici", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID, "newest first")
	assert.True(t, runs[0].FinishedAt.IsZero())

	runs, err = s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].RunID)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.FinishRun(context.Background(), "missing", false, 3, "")
	assert.ErrorContains(t, err, "not found")
}

func TestHook_RecordsRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	h := NewHook(s, nil)

	st := &engine.State{RunID: "r9", TargetID: "sbi", OutputPath: "out/sbi_parser.py"}
	h.OnRunStart(ctx, st)

	st.AttemptCount = 1
	st.CandidateCode = "x = 1"
	st.Feedback = "Generated code missing required elements"
	h.OnVerdict(ctx, st, engine.Verdict{Status: engine.VerdictError, Message: "Generated code missing required elements"})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	h.OnRunEnd(cancelled, st, engine.Result{RunID: "r9", Success: false, Attempts: 1, LastFeedback: st.Feedback})

	runs, err := s.ListRuns(ctx, "sbi", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Success)
	assert.Equal(t, 1, runs[0].Attempts)
	assert.False(t, runs[0].FinishedAt.IsZero())

	attempts, err := s.Attempts(ctx, "r9")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 5, attempts[0].CodeLength)
}
