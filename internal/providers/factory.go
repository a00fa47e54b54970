package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

// DefaultProvider is used when LLM_PROVIDER is unset.
const DefaultProvider = "gemini"

// compatProvider describes an OpenAI-compatible endpoint.
type compatProvider struct {
	prefix       string // environment variable prefix, e.g. "GEMINI"
	defaultModel string
	baseURL      string // fixed or default base URL
	localKey     string // placeholder key for local servers; empty means a key is required
}

var compatProviders = map[string]compatProvider{
	"openai":   {prefix: "OPENAI", defaultModel: "gpt-4o-mini"},
	"gemini":   {prefix: "GEMINI", defaultModel: "gemini-2.0-flash", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"kimi":     {prefix: "KIMI", defaultModel: "kimi-k2-250711", baseURL: "https://ark.ap-southeast.bytepluses.com/api/v3"},
	"deepseek": {prefix: "DEEPSEEK", defaultModel: "deepseek-chat", baseURL: "https://api.deepseek.com/v1"},
	"groq":     {prefix: "GROQ", defaultModel: "llama-3.3-70b-versatile", baseURL: "https://api.groq.com/openai/v1"},
	"glm":      {prefix: "GLM", defaultModel: "glm-4-plus", baseURL: "https://open.bigmodel.cn/api/paas/v4"},
	"lmstudio": {prefix: "LMSTUDIO", defaultModel: "local-model", baseURL: "http://localhost:1234/v1", localKey: "lm-studio"},
	"ollama":   {prefix: "OLLAMA", defaultModel: "llama3.1", baseURL: "http://localhost:11434/v1", localKey: "ollama"},
}

// Info describes the client built by NewLLMClientFromEnv.
type Info struct {
	Provider string
	Model    string
	BaseURL  string
}

// Providers lists the supported provider names.
func Providers() []string {
	names := []string{"anthropic"}
	for name := range compatProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewLLMClientFromEnv creates an engine.LLMClient from environment variables:
// LLM_PROVIDER selects the provider, <PREFIX>_API_KEY, <PREFIX>_MODEL and
// <PREFIX>_BASE_URL configure it.
func NewLLMClientFromEnv() (engine.LLMClient, Info, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if provider == "" {
		provider = DefaultProvider
	}

	if provider == "anthropic" {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, Info{}, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		info := Info{
			Provider: provider,
			Model:    envOr("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
			BaseURL:  os.Getenv("ANTHROPIC_BASE_URL"),
		}
		client, err := NewAnthropicClient(apiKey, info.Model, info.BaseURL)
		if err != nil {
			return nil, Info{}, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, info, nil
	}

	p, ok := compatProviders[provider]
	if !ok {
		return nil, Info{}, fmt.Errorf("unknown LLM_PROVIDER: %s (supported: %s)", provider, strings.Join(Providers(), ", "))
	}

	apiKey := os.Getenv(p.prefix + "_API_KEY")
	if apiKey == "" {
		if p.localKey == "" {
			return nil, Info{}, fmt.Errorf("%s_API_KEY not set", p.prefix)
		}
		apiKey = p.localKey
	}
	info := Info{
		Provider: provider,
		Model:    envOr(p.prefix+"_MODEL", p.defaultModel),
		BaseURL:  envOr(p.prefix+"_BASE_URL", p.baseURL),
	}

	client, err := NewOpenAIClient(apiKey, info.Model, info.BaseURL)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return client, info, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvPrefix returns the environment variable prefix used by provider, e.g.
// "GEMINI" for GEMINI_API_KEY.
func EnvPrefix(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = DefaultProvider
	}
	if p, ok := compatProviders[provider]; ok {
		return p.prefix
	}
	return strings.ToUpper(provider)
}
