package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

func TestNewLLMClientFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantErr  string
		provider string
		model    string
		baseURL  string
	}{
		{
			name:     "default provider is gemini",
			env:      map[string]string{"GEMINI_API_KEY": "k"},
			provider: "gemini",
			model:    "gemini-2.0-flash",
			baseURL:  "https://generativelanguage.googleapis.com/v1beta/openai",
		},
		{
			name:    "missing key",
			env:     map[string]string{"LLM_PROVIDER": "deepseek"},
			wantErr: "DEEPSEEK_API_KEY not set",
		},
		{
			name:     "model and base url override",
			env:      map[string]string{"LLM_PROVIDER": "OpenAI", "OPENAI_API_KEY": "k", "OPENAI_MODEL": "gpt-4.1", "OPENAI_BASE_URL": "http://proxy/v1"},
			provider: "openai",
			model:    "gpt-4.1",
			baseURL:  "http://proxy/v1",
		},
		{
			name:     "local server needs no key",
			env:      map[string]string{"LLM_PROVIDER": "ollama"},
			provider: "ollama",
			model:    "llama3.1",
			baseURL:  "http://localhost:11434/v1",
		},
		{
			name:     "anthropic",
			env:      map[string]string{"LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "k", "ANTHROPIC_MODEL": "claude-x"},
			provider: "anthropic",
			model:    "claude-x",
		},
		{
			name:    "unknown",
			env:     map[string]string{"LLM_PROVIDER": "mystery"},
			wantErr: "unknown LLM_PROVIDER: mystery",
		},
	}

	keys := []string{"LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "DEEPSEEK_API_KEY",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "OLLAMA_API_KEY", "OLLAMA_MODEL", "OLLAMA_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			client, info, err := NewLLMClientFromEnv()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
			assert.Equal(t, tt.provider, info.Provider)
			assert.Equal(t, tt.model, info.Model)
			assert.Equal(t, tt.baseURL, info.BaseURL)
		})
	}
}

func TestProviders(t *testing.T) {
	names := Providers()
	assert.Contains(t, names, "anthropic")
	assert.Contains(t, names, "gemini")
	assert.IsIncreasing(t, names)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "model": "served-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "def parse(p): pass"}, "finish_reason": "length"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("test-key", "gemini-2.0-flash", srv.URL)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), engine.CompletionRequest{
		Operation:       engine.OpGenerate,
		System:          "sys",
		Prompt:          "write a parser",
		Temperature:     0.4,
		MaxOutputTokens: 4096,
	})
	require.NoError(t, err)

	assert.Equal(t, "def parse(p): pass", resp.Text)
	assert.Equal(t, "served-model", resp.Model)
	assert.Equal(t, "length", resp.FinishReason)
	assert.Equal(t, engine.Usage{Prompt: 10, Completion: 5, Total: 15}, resp.Usage)

	assert.Equal(t, "gemini-2.0-flash", got["model"])
	assert.InDelta(t, 0.4, got["temperature"], 1e-6)
	assert.EqualValues(t, 4096, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "write a parser", msgs[1].(map[string]any)["content"])
}

func TestOpenAIClient_ErrorsAreClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached for requests", "type": "requests"}}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("k", "m", srv.URL)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), engine.CompletionRequest{Prompt: "x"})
	require.Error(t, err)

	var ee *engine.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusTooManyRequests, ee.HTTPStatus)
	assert.True(t, ee.IsRateLimit)
	assert.True(t, engine.IsTransient(err))
}

func TestBuildAnthropicRequest(t *testing.T) {
	req := buildAnthropicRequest("claude-x", engine.CompletionRequest{System: "sys", Prompt: "hi", Temperature: 0.8})
	assert.Equal(t, "claude-x", string(req.Model))
	assert.Equal(t, anthropicDefaultMaxTokens, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.8, *req.Temperature, 1e-6)
	require.Len(t, req.MultiSystem, 1)
	assert.Equal(t, "sys", req.MultiSystem[0].Text)
	require.Len(t, req.Messages, 1)

	req = buildAnthropicRequest("claude-x", engine.CompletionRequest{Prompt: "hi", MaxOutputTokens: 2048})
	assert.Equal(t, 2048, req.MaxTokens)
	assert.Nil(t, req.Temperature)
	assert.Empty(t, req.MultiSystem)
}

func TestExtractErrorMetadata(t *testing.T) {
	tests := []struct {
		msg        string
		status     int
		retryAfter string
	}{
		{"error, status code: 503, status: 503 Service Unavailable", 503, ""},
		{"HTTP 429 Too Many Requests; Retry-After: 30", 429, "30"},
		{"rate limit reached, retry after 12 seconds", 429, "12"},
		{"401 unauthorized", 401, ""},
		{"connection reset by peer", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			status, ra := extractErrorMetadata(errors.New(tt.msg))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.retryAfter, ra)
		})
	}
	status, ra := extractErrorMetadata(nil)
	assert.Zero(t, status)
	assert.Empty(t, ra)
}

type countingLLM struct{ n atomic.Int32 }

func (c *countingLLM) Complete(context.Context, engine.CompletionRequest) (engine.CompletionResponse, error) {
	c.n.Add(1)
	return engine.CompletionResponse{Text: "ok"}, nil
}

func TestRateLimited(t *testing.T) {
	inner := &countingLLM{}
	assert.Same(t, engine.LLMClient(inner), NewRateLimited(inner, 0))

	limited := NewRateLimited(inner, 60) // one per second, burst 1
	ctx := context.Background()

	_, err := limited.Complete(ctx, engine.CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, engine.CompletionRequest{})
	assert.Error(t, err, "second call must wait past the deadline")
	assert.EqualValues(t, 1, inner.n.Load())
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "GEMINI", EnvPrefix(""))
	assert.Equal(t, "LMSTUDIO", EnvPrefix("LMStudio"))
	assert.Equal(t, "ANTHROPIC", EnvPrefix("anthropic"))
}
