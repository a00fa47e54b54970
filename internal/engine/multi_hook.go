package engine

import (
	"context"
	"time"
)

type Hooks []Hook

func (hs Hooks) OnRunStart(ctx context.Context, st *State) {
	for _, h := range hs {
		h.OnRunStart(ctx, st)
	}
}
func (hs Hooks) OnStageStart(ctx context.Context, st *State) {
	for _, h := range hs {
		h.OnStageStart(ctx, st)
	}
}
func (hs Hooks) OnStageEnd(ctx context.Context, st *State, p Patch) {
	for _, h := range hs {
		h.OnStageEnd(ctx, st, p)
	}
}
func (hs Hooks) OnLLMCall(ctx context.Context, call LLMCall) {
	for _, h := range hs {
		h.OnLLMCall(ctx, call)
	}
}
func (hs Hooks) OnVerdict(ctx context.Context, st *State, v Verdict) {
	for _, h := range hs {
		h.OnVerdict(ctx, st, v)
	}
}
func (hs Hooks) OnTransition(ctx context.Context, st *State, from, to Stage) {
	for _, h := range hs {
		h.OnTransition(ctx, st, from, to)
	}
}
func (hs Hooks) OnBackoff(ctx context.Context, st *State, d time.Duration, err error) {
	for _, h := range hs {
		h.OnBackoff(ctx, st, d, err)
	}
}
func (hs Hooks) OnRunEnd(ctx context.Context, st *State, res Result) {
	for _, h := range hs {
		h.OnRunEnd(ctx, st, res)
	}
}
