package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/sandbox"
	"github.com/ChamsBouzaiene/parsegen/internal/table"
)

// Verdict messages.
const (
	MsgSuccess          = "Parser generated successfully"
	MsgMissingElements  = "Generated code missing required elements"
	MsgNoCandidate      = "No candidate code to validate"
	MsgExecutionFailed  = "Parser execution failed"
	MsgOutputMismatch   = "Parser output does not match expected table"
	MsgExecutionSuccess = "Parser output matches expected table"
)

// stderrTail bounds the stderr excerpt carried into feedback.
const stderrTail = 800

// Validator persists the current candidate and judges it: a structural check
// always, then optionally a run against the sample document.
type Validator struct {
	runner sandbox.Runner
	opts   Options
}

// NewValidator creates a Validator. runner may be nil when execution is off.
func NewValidator(runner sandbox.Runner, opts Options) *Validator {
	return &Validator{runner: runner, opts: opts.withDefaults()}
}

// Validate implements engine.Validator.
func (v *Validator) Validate(ctx context.Context, st *engine.State) engine.Patch {
	if err := WriteArtifact(st.OutputPath, st.CandidateCode); err != nil {
		return engine.FailurePatch(engine.StageTesting, err)
	}

	if st.CandidateCode == "" && errors.Is(st.LastError, engine.ErrGeneration) {
		// Keep the generation error as the feedback to reflect on.
		return engine.Patch{Verdict: &engine.Verdict{Status: engine.VerdictError, Message: MsgNoCandidate}}
	}

	if missing := CheckStructure(st.CandidateCode, v.opts.Language); len(missing) > 0 {
		return engine.Patch{
			Verdict:  &engine.Verdict{Status: engine.VerdictError, Message: MsgMissingElements},
			Feedback: engine.Str("Generated code missing " + strings.Join(missing, " or ")),
		}
	}

	if !v.opts.Execute || v.runner == nil {
		return engine.Patch{Verdict: &engine.Verdict{Status: engine.VerdictSuccess, Message: MsgSuccess}}
	}
	if st.ExpectedTable == nil {
		v.opts.Logger.Warn("execution check skipped: expected table not loaded", "target", st.TargetID)
		return engine.Patch{Verdict: &engine.Verdict{Status: engine.VerdictSuccess, Message: MsgSuccess}}
	}
	return v.execute(ctx, st)
}

func (v *Validator) execute(ctx context.Context, st *engine.State) engine.Patch {
	dir, docName, err := stageExecution(st.CandidateCode, st.SampleInputPath)
	if err != nil {
		return engine.FailurePatch(engine.StageTesting, err)
	}
	defer os.RemoveAll(dir)

	res, runErr := v.runner.RunCmd(ctx, dir, v.opts.Language.Interpreter, []string{harnessFile, docName}, v.opts.ExecTimeout)
	switch {
	case res.TimedOut:
		return failed(MsgExecutionFailed, "Parser execution timed out")
	case runErr != nil && res.Code == 0:
		// The command never ran.
		return engine.FailurePatch(engine.StageTesting, runErr)
	case res.Code != 0:
		return failed(MsgExecutionFailed, fmt.Sprintf("Parser execution failed (exit %d): %s",
			res.Code, tail(strings.TrimSpace(res.Stderr), stderrTail)))
	}

	got, err := table.ParseCSV(strings.NewReader(res.Stdout))
	if err != nil {
		return failed(MsgOutputMismatch, "Parser output is not a valid table: "+err.Error())
	}
	if diffs := st.ExpectedTable.Diff(got); len(diffs) > 0 {
		return failed(MsgOutputMismatch, "Parser output does not match the expected table:\n- "+strings.Join(diffs, "\n- "))
	}
	return engine.Patch{Verdict: &engine.Verdict{Status: engine.VerdictSuccess, Message: MsgExecutionSuccess}}
}

func failed(msg, feedback string) engine.Patch {
	return engine.Patch{
		Verdict:  &engine.Verdict{Status: engine.VerdictError, Message: msg},
		Feedback: engine.Str(feedback),
	}
}

// WriteArtifact writes code to path, creating the parent directory and
// truncating any previous content.
func WriteArtifact(path, code string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteString(code)
	return err
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
