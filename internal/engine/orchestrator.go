package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
)

// Request identifies the inputs and output of one run.
type Request struct {
	TargetID           string
	SampleInputPath    string
	SampleExpectedPath string
	OutputPath         string
}

// Validate checks that every field is set.
func (r Request) Validate() error {
	switch {
	case r.TargetID == "":
		return errors.New("target id is required")
	case r.SampleInputPath == "":
		return errors.New("sample input path is required")
	case r.SampleExpectedPath == "":
		return errors.New("sample expected path is required")
	case r.OutputPath == "":
		return errors.New("output path is required")
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	RunID        string
	TargetID     string
	Success      bool
	Attempts     int
	Stage        Stage // terminal stage
	LastFeedback string
	OutputPath   string
	CodeLength   int
	Err          error // wraps ErrBudgetExhausted when Success is false
}

// Orchestrator drives the planning, generation, testing and reflection
// components through the stage machine until a terminal stage is reached.
type Orchestrator struct {
	cfg       Config
	planner   Planner
	generator Generator
	validator Validator
	reflector Reflector
	hooks     Hooks
	logger    *slog.Logger
	sleep     Sleeper
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for the run trace.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks adds observability hooks.
func WithHooks(hs ...Hook) Option {
	return func(o *Orchestrator) {
		o.hooks = append(o.hooks, hs...)
	}
}

// WithSleeper replaces the backoff sleeper (used by tests).
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewOrchestrator creates an Orchestrator. It returns an error when cfg is
// invalid or a component is missing.
func NewOrchestrator(cfg Config, p Planner, g Generator, v Validator, r Reflector, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if p == nil || g == nil || v == nil || r == nil {
		return nil, errors.New("planner, generator, validator and reflector are all required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		planner:   p,
		generator: g,
		validator: v,
		reflector: r,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:     ContextSleep,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.hooks = append(Hooks{LoggerHook{L: o.logger}}, o.hooks...)
	return o, nil
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Run executes one plan/generate/test/reflect run for req.
//
// Component failures never surface as errors here: they become feedback and
// failed attempts. Run returns an error only for an invalid request or when
// ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid run request: %w", err)
	}

	st := &State{
		RunID:              o.newID(),
		TargetID:           req.TargetID,
		SampleInputPath:    req.SampleInputPath,
		SampleExpectedPath: req.SampleExpectedPath,
		OutputPath:         req.OutputPath,
		Stage:              StagePlanning,
	}

	o.logger.Info("agent configuration",
		"run_id", st.RunID,
		"target", st.TargetID,
		"max_attempts", o.cfg.MaxAttempts,
		"step_timeout", o.cfg.StepTimeout,
		"feedback_history", o.cfg.FeedbackHistory)
	o.hooks.OnRunStart(ctx, st)

	var genErr error
	transientFailures := 0
	for !st.Stage.Terminal() {
		if err := ctx.Err(); err != nil {
			return o.result(st), fmt.Errorf("run cancelled at stage %s: %w", st.Stage, err)
		}

		if st.Stage == StageGenerating {
			if transientFailures > 0 {
				delay := BackoffDelay(o.cfg.Backoff, transientFailures, genErr)
				if delay > 0 {
					o.hooks.OnBackoff(ctx, st, delay, genErr)
					if err := o.sleep(ctx, delay); err != nil {
						return o.result(st), err
					}
				}
			}
			st.AttemptCount++
		}

		o.hooks.OnStageStart(ctx, st)
		patch := o.invoke(ctx, st)
		st.Apply(patch, o.cfg.FeedbackHistory)
		o.hooks.OnStageEnd(ctx, st, patch)

		switch st.Stage {
		case StageGenerating:
			genErr = patch.Err
			if IsTransient(patch.Err) {
				transientFailures++
			} else {
				transientFailures = 0
			}
		case StageTesting:
			o.hooks.OnVerdict(ctx, st, st.Verdict)
		}

		next := Next(st.Stage, st.Success, st.AttemptCount, o.cfg.MaxAttempts)
		o.hooks.OnTransition(ctx, st, st.Stage, next)
		st.Stage = next
	}

	res := o.result(st)
	o.hooks.OnRunEnd(ctx, st, res)
	return res, nil
}

// invoke runs the component for the current stage under the step timeout.
// A panicking component is converted into the stage's failure patch.
func (o *Orchestrator) invoke(ctx context.Context, st *State) (p Patch) {
	stage := st.Stage
	if o.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StepTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("component panicked", "stage", stage, "panic", r, "stack", string(debug.Stack()))
			p = FailurePatch(stage, fmt.Errorf("panic: %v", r))
		}
	}()

	switch stage {
	case StagePlanning:
		return o.planner.Plan(ctx, st)
	case StageGenerating:
		return o.generator.Generate(ctx, st)
	case StageTesting:
		return o.validator.Validate(ctx, st)
	case StageReflecting:
		return o.reflector.Reflect(ctx, st)
	}
	return Patch{}
}

func (o *Orchestrator) result(st *State) Result {
	res := Result{
		RunID:        st.RunID,
		TargetID:     st.TargetID,
		Success:      st.Success,
		Attempts:     st.AttemptCount,
		Stage:        st.Stage,
		LastFeedback: st.Feedback,
		OutputPath:   st.OutputPath,
		CodeLength:   len(st.CandidateCode),
	}
	if st.Stage == StageFailed {
		res.Err = fmt.Errorf("%w after %d/%d attempts: %s",
			ErrBudgetExhausted, st.AttemptCount, o.cfg.MaxAttempts, Truncate(st.Feedback, 200))
	}
	return res
}

// FailurePatch builds the state update recording a failed step.
func FailurePatch(stage Stage, err error) Patch {
	switch stage {
	case StagePlanning:
		return Patch{Feedback: Str("Planning failed: " + Describe(err)), Err: NewStageError(stage, ErrPlanning, err)}
	case StageGenerating:
		return Patch{
			CandidateCode: Str(""),
			Feedback:      Str("Code generation error: " + Describe(err)),
			Err:           NewStageError(stage, ErrGeneration, err),
		}
	case StageTesting:
		return Patch{
			Verdict:  &Verdict{Status: VerdictError, Message: err.Error()},
			Feedback: Str("Testing error: " + err.Error()),
			Err:      err,
		}
	case StageReflecting:
		return Patch{Feedback: Str("Reflection error: " + Describe(err)), Err: NewStageError(stage, ErrReflection, err)}
	}
	return Patch{Err: err}
}

// Truncate shortens s to at most n bytes, marking the cut with "...".
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
