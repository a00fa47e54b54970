// engine/hooks.go
package engine

import (
	"context"
	"time"
)

type Hook interface {
	OnRunStart(ctx context.Context, st *State)
	OnStageStart(ctx context.Context, st *State)
	OnStageEnd(ctx context.Context, st *State, p Patch)
	OnLLMCall(ctx context.Context, call LLMCall)
	OnVerdict(ctx context.Context, st *State, v Verdict)
	OnTransition(ctx context.Context, st *State, from, to Stage)
	OnBackoff(ctx context.Context, st *State, delay time.Duration, err error)
	OnRunEnd(ctx context.Context, st *State, res Result)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnRunStart(context.Context, *State)                      {}
func (NopHook) OnStageStart(context.Context, *State)                    {}
func (NopHook) OnStageEnd(context.Context, *State, Patch)               {}
func (NopHook) OnLLMCall(context.Context, LLMCall)                      {}
func (NopHook) OnVerdict(context.Context, *State, Verdict)              {}
func (NopHook) OnTransition(context.Context, *State, Stage, Stage)      {}
func (NopHook) OnBackoff(context.Context, *State, time.Duration, error) {}
func (NopHook) OnRunEnd(context.Context, *State, Result)                {}
