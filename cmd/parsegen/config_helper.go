package main

import (
	"os"

	"github.com/ChamsBouzaiene/parsegen/internal/config"
	"github.com/ChamsBouzaiene/parsegen/internal/providers"
)

// applyConfigToEnv exports the user config as provider environment variables.
// Saved choices win over the shell and .env.
func applyConfigToEnv(cfg *config.Config) {
	if cfg.LLMProvider != "" {
		os.Setenv("LLM_PROVIDER", cfg.LLMProvider)
	}
	prefix := providers.EnvPrefix(os.Getenv("LLM_PROVIDER"))

	if cfg.APIKey != "" {
		os.Setenv(prefix+"_API_KEY", cfg.APIKey)
	}
	if cfg.Model != "" {
		os.Setenv(prefix+"_MODEL", cfg.Model)
	}
	if cfg.BaseURL != "" {
		os.Setenv(prefix+"_BASE_URL", cfg.BaseURL)
	}
}
