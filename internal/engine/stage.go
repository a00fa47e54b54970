package engine

// Stage is a state of the orchestration state machine.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageGenerating Stage = "generating"
	StageTesting    Stage = "testing"
	StageReflecting Stage = "reflecting"
	StageSucceeded  Stage = "succeeded"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further work happens after s.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// transitions holds the unconditional edges. Testing has no entry: its
// successor is decided by Route.
var transitions = map[Stage]Stage{
	StagePlanning:   StageGenerating,
	StageGenerating: StageTesting,
	StageReflecting: StageGenerating,
}

// Route decides what follows a Testing stage. It is pure: the result depends
// only on its arguments.
func Route(success bool, attemptCount, maxAttempts int) Stage {
	switch {
	case success:
		return StageSucceeded
	case attemptCount >= maxAttempts:
		return StageFailed
	default:
		return StageReflecting
	}
}

// Next returns the stage following from for the given state.
func Next(from Stage, success bool, attemptCount, maxAttempts int) Stage {
	if from == StageTesting {
		return Route(success, attemptCount, maxAttempts)
	}
	if to, ok := transitions[from]; ok {
		return to
	}
	return from
}
