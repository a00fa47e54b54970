package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Greater(t, EstimateTokens("def parse(path):\n    return pd.DataFrame()\n"), 5)
}

type cannedLLM struct {
	resp CompletionResponse
	err  error
}

func (c cannedLLM) Complete(context.Context, CompletionRequest) (CompletionResponse, error) {
	return c.resp, c.err
}

type llmCallHook struct {
	NopHook
	calls []LLMCall
}

func (h *llmCallHook) OnLLMCall(_ context.Context, c LLMCall) { h.calls = append(h.calls, c) }

func TestInstrument(t *testing.T) {
	hook := &llmCallHook{}
	llm := Instrument(cannedLLM{resp: CompletionResponse{Text: "abcdefgh", Model: "m"}}, hook)

	resp, err := llm.Complete(context.Background(), CompletionRequest{Operation: OpGenerate, Prompt: "abcd"})
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", resp.Text)

	require.Len(t, hook.calls, 1)
	assert.Equal(t, OpGenerate, hook.calls[0].Operation)
	assert.Equal(t, "m", hook.calls[0].Model)
	assert.Equal(t, Usage{Prompt: 1, Completion: 2, Total: 3}, hook.calls[0].Usage)

	boom := errors.New("boom")
	failing := Instrument(cannedLLM{err: boom}, hook)
	_, err = failing.Complete(context.Background(), CompletionRequest{Operation: OpReflect})
	assert.ErrorIs(t, err, boom)
	require.Len(t, hook.calls, 2)
	assert.ErrorIs(t, hook.calls[1].Err, boom)

	assert.Equal(t, llm, Instrument(llm, nil))
}
