package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/parsegen/internal/config"
	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/project"
)

const (
	statement = `Karbon Bank
Date Description Debit Amt Credit Amt Balance
01-08-2024 Salary Credit XYZ Pvt Ltd 1935.3 6864.58
`
	expected = "Date,Description,Debit Amt,Credit Amt,Balance\n01-08-2024,Salary Credit XYZ Pvt Ltd,,1935.3,6864.58\n"
	parser   = "import pandas as pd\n\ndef parse(pdf_path: str) -> pd.DataFrame:\n    return pd.DataFrame([])"
)

// stubLLM answers by operation; generate replies are consumed in order.
type stubLLM struct {
	mu        sync.Mutex
	generates []string
}

func (s *stubLLM) Complete(_ context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch req.Operation {
	case engine.OpPlan:
		return engine.CompletionResponse{Text: `{"transaction_pattern": "date description amounts balance"}`}, nil
	case engine.OpReflect:
		return engine.CompletionResponse{Text: "Define parse and return a DataFrame."}, nil
	case engine.OpGenerate:
		if len(s.generates) == 0 {
			return engine.CompletionResponse{}, errors.New("no more replies")
		}
		text := s.generates[0]
		if len(s.generates) > 1 {
			s.generates = s.generates[1:]
		}
		return engine.CompletionResponse{Text: text}, nil
	}
	return engine.CompletionResponse{}, errors.New("unexpected operation")
}

func testSettings(t *testing.T) project.Settings {
	t.Helper()
	root := t.TempDir()
	s := project.DefaultSettings()
	s.DataRoot = filepath.Join(root, "data")
	s.OutputDir = filepath.Join(root, "custom_parsers")
	s.HistoryDB = filepath.Join(root, ".parsegen", "history.db")
	s.MetricsFile = filepath.Join(root, "parsegen.prom")
	s.SandboxMode = "host"

	dir := filepath.Join(s.DataRoot, "icici")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icici_sample.txt"), []byte(statement), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icici_sample.csv"), []byte(expected), 0644))
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppEnv_RunTargetRecovers(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	llm := &stubLLM{generates: []string{"print('hello')", "```python\n" + parser + "\n```"}}

	env, err := newAppEnv(ctx, settings, llm, discardLogger())
	require.NoError(t, err)

	res, err := env.runTarget(ctx, "icici")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, filepath.Join(settings.OutputDir, "icici_parser.py"), res.OutputPath)

	written, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, parser, string(written))

	runs, err := env.history.ListRuns(ctx, "icici", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Success)
	attempts, err := env.history.Attempts(ctx, runs[0].RunID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	env.Close()
	prom, err := os.ReadFile(settings.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `parsegen_runs_total{outcome="success",target="icici"} 1`)
}

func TestAppEnv_RunTargetExhaustsBudget(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	settings.HistoryDB = ""
	settings.MaxAttempts = 2

	env, err := newAppEnv(ctx, settings, &stubLLM{generates: []string{"print('hello')"}}, discardLogger())
	require.NoError(t, err)
	defer env.Close()

	res, err := env.runTarget(ctx, "icici")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.True(t, engine.IsBudgetExhausted(res.Err))

	var buf bytes.Buffer
	report(&buf, res, settings.MaxAttempts)
	assert.Contains(t, buf.String(), "FAILED: no passing parser for icici")
	assert.Contains(t, buf.String(), "attempts used: 2/2")
}

func TestAppEnv_RunTargetMissingInputs(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	settings.HistoryDB = ""

	env, err := newAppEnv(ctx, settings, &stubLLM{}, discardLogger())
	require.NoError(t, err)
	defer env.Close()

	_, err = env.runTarget(ctx, "sbi")
	assert.ErrorContains(t, err, "sbi_sample.csv")
}

func TestReport_Success(t *testing.T) {
	var buf bytes.Buffer
	report(&buf, engine.Result{TargetID: "icici", Success: true, Attempts: 1, CodeLength: 812, OutputPath: "custom_parsers/icici_parser.py"}, 3)

	out := buf.String()
	assert.Contains(t, out, "attempts used: 1/3")
	assert.Contains(t, out, "code length:   812 chars")
	assert.Contains(t, out, "from icici_parser import parse")
}

func TestReport_TruncatesFeedback(t *testing.T) {
	var buf bytes.Buffer
	long := "Reflection feedback: " + string(bytes.Repeat([]byte("x"), 400))
	report(&buf, engine.Result{TargetID: "sbi", Attempts: 3, LastFeedback: long}, 3)
	assert.Contains(t, buf.String(), long[:200]+"...")
	assert.NotContains(t, buf.String(), long[:201])
}

func TestApplyConfigToEnv(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "GROQ_API_KEY", "GROQ_MODEL", "GROQ_BASE_URL", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}

	applyConfigToEnv(&config.Config{LLMProvider: "groq", APIKey: "k", Model: "m", BaseURL: "http://x"})
	assert.Equal(t, "groq", os.Getenv("LLM_PROVIDER"))
	assert.Equal(t, "k", os.Getenv("GROQ_API_KEY"))
	assert.Equal(t, "m", os.Getenv("GROQ_MODEL"))
	assert.Equal(t, "http://x", os.Getenv("GROQ_BASE_URL"))

	t.Setenv("LLM_PROVIDER", "")
	applyConfigToEnv(&config.Config{APIKey: "g"})
	assert.Equal(t, "g", os.Getenv("GEMINI_API_KEY"), "default provider receives the key")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestLoadSettings_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	g := &globalFlags{projectDir: dir, dataRoot: "/srv/data", maxAttempts: 7, execute: true}

	s, err := loadSettings(g)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", s.DataRoot)
	assert.Equal(t, filepath.Join(dir, "custom_parsers"), s.OutputDir)
	assert.Equal(t, 7, s.MaxAttempts)
	assert.True(t, s.Execute)
}

func TestRunCmd_RequiresTargetOrAll(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "exactly one of --target or --all")
}

func TestListCmd(t *testing.T) {
	settings := testSettings(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"list", "--project", t.TempDir(), "--data-root", settings.DataRoot})
	cmd.SetOut(&out)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "icici")
	assert.Contains(t, out.String(), "icici_sample.txt")
}
