package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicClient implements engine.LLMClient with the Anthropic messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Anthropic client. An empty baseURL targets
// the public API.
func NewAnthropicClient(apiKey, modelName, baseURL string) (*AnthropicClient, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  modelName,
	}, nil
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string { return c.model }

// Complete implements engine.LLMClient.
func (c *AnthropicClient) Complete(ctx context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
	resp, err := c.client.CreateMessages(ctx, buildAnthropicRequest(c.model, req))
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.CompletionResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	finishReason := "stop"
	switch resp.StopReason {
	case "max_tokens":
		finishReason = "length"
	case "content_filtered", "refusal":
		finishReason = "content_filter"
	}

	return engine.CompletionResponse{
		Text:  text.String(),
		Model: string(resp.Model),
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}

func buildAnthropicRequest(model string, req engine.CompletionRequest) anthropic.MessagesRequest {
	maxTokens := anthropicDefaultMaxTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}

	out := anthropic.MessagesRequest{
		Model: anthropic.Model(model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.Prompt)},
		}},
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.System != "" {
		out.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: req.System}}
	}
	return out
}
