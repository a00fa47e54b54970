package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

// reply is one scripted completion.
type reply struct {
	text   string
	err    error
	finish string
}

// scriptedLLM replays replies per operation in order and records every
// request. Once a script runs out its last reply repeats.
type scriptedLLM struct {
	mu       sync.Mutex
	scripts  map[engine.Operation][]reply
	next     map[engine.Operation]int
	requests []engine.CompletionRequest
}

func newScriptedLLM(scripts map[engine.Operation][]reply) *scriptedLLM {
	return &scriptedLLM{scripts: scripts, next: map[engine.Operation]int{}}
}

func (s *scriptedLLM) Complete(_ context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	script := s.scripts[req.Operation]
	if len(script) == 0 {
		return engine.CompletionResponse{}, fmt.Errorf("no script for %s", req.Operation)
	}
	i := s.next[req.Operation]
	if i >= len(script) {
		i = len(script) - 1
	}
	s.next[req.Operation]++

	r := script[i]
	if r.err != nil {
		return engine.CompletionResponse{}, r.err
	}
	finish := r.finish
	if finish == "" {
		finish = "stop"
	}
	return engine.CompletionResponse{Text: r.text, Model: "stub", FinishReason: finish}, nil
}

func (s *scriptedLLM) calls(op engine.Operation) []engine.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []engine.CompletionRequest
	for _, r := range s.requests {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}
