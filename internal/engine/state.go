// Package engine provides the plan/generate/test/reflect orchestration loop.

package engine

import (
	"github.com/ChamsBouzaiene/parsegen/internal/table"
)

// VerdictStatus is the outcome of one validation.
type VerdictStatus string

const (
	VerdictSuccess VerdictStatus = "success"
	VerdictError   VerdictStatus = "error"
)

// Verdict is the Validator's judgment of a candidate.
type Verdict struct {
	Status  VerdictStatus `json:"status"`
	Message string        `json:"message"`
}

// Passed reports whether the verdict is a pass.
func (v Verdict) Passed() bool { return v.Status == VerdictSuccess }

// State is the single record threaded through one run.
type State struct {
	RunID              string
	TargetID           string
	SampleInputPath    string
	SampleExpectedPath string
	OutputPath         string

	// Written once by the Planner.
	ExtractedText string
	ExpectedTable *table.Table
	Analysis      string

	CandidateCode   string
	Verdict         Verdict
	Feedback        string
	FeedbackHistory []string // most recent last, bounded
	LastError       error    // underlying failure of the latest step, if any
	AttemptCount    int
	Success         bool
	Stage           Stage

	planned bool
}

// Patch is a typed partial update returned by a component. Nil fields are
// left untouched when the patch is applied.
type Patch struct {
	ExtractedText *string
	ExpectedTable *table.Table
	Analysis      *string
	CandidateCode *string
	Verdict       *Verdict
	Feedback      *string
	Err           error
}

// Str returns a pointer to s, for building patches.
func Str(s string) *string { return &s }

// Apply merges p into the state. historySize bounds FeedbackHistory (values
// below 1 keep only the latest entry).
func (s *State) Apply(p Patch, historySize int) {
	// Planner output is write-once: later patches cannot replace it.
	if !s.planned {
		if p.ExtractedText != nil && s.ExtractedText == "" {
			s.ExtractedText = *p.ExtractedText
		}
		if p.ExpectedTable != nil && s.ExpectedTable == nil {
			s.ExpectedTable = p.ExpectedTable
		}
		if p.Analysis != nil && s.Analysis == "" {
			s.Analysis = *p.Analysis
		}
		if s.Stage == StagePlanning {
			s.planned = true
		}
	}

	if p.CandidateCode != nil {
		s.CandidateCode = *p.CandidateCode
	}
	if p.Verdict != nil {
		s.Verdict = *p.Verdict
		s.Success = p.Verdict.Passed() && s.CandidateCode != ""
		if p.Verdict.Passed() && !s.Success {
			s.Verdict = Verdict{Status: VerdictError, Message: "empty candidate cannot pass validation"}
		}
	}
	if p.Feedback != nil {
		s.Feedback = *p.Feedback
		s.pushFeedback(*p.Feedback, historySize)
	}
	s.LastError = p.Err
}

func (s *State) pushFeedback(f string, size int) {
	if size < 1 {
		size = 1
	}
	s.FeedbackHistory = append(s.FeedbackHistory, f)
	if n := len(s.FeedbackHistory); n > size {
		s.FeedbackHistory = append([]string(nil), s.FeedbackHistory[n-size:]...)
	}
}

// Columns returns the expected column order, or nil when no table was loaded.
func (s *State) Columns() []string {
	if s.ExpectedTable == nil {
		return nil
	}
	return s.ExpectedTable.Columns
}
