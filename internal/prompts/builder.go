package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	basePrompt *Prompt
	fragments  []string
	variables  map[string]string
}

// NewPromptBuilder creates a new prompt builder from the latest version of a
// registered prompt.
func NewPromptBuilder(registry *PromptRegistry, id string) (*PromptBuilder, error) {
	basePrompt, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}

	return &PromptBuilder{
		basePrompt: basePrompt,
		fragments:  []string{basePrompt.Content},
		variables:  make(map[string]string),
	}, nil
}

// AddFragment appends a fragment to the prompt. Empty fragments are skipped.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	if strings.TrimSpace(text) != "" {
		b.fragments = append(b.fragments, text)
	}
	return b
}

// SetVariable sets a variable for template substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// System returns the system instruction of the base prompt with variables
// substituted.
func (b *PromptBuilder) System() string {
	return placeholderPattern.ReplaceAllStringFunc(b.basePrompt.System, func(m string) string {
		if v, ok := b.variables[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// Build constructs the final prompt string. Every {{key}} placeholder in the
// base prompt must have a value. Added fragments are appended verbatim.
func (b *PromptBuilder) Build() (string, error) {
	var missing []string
	base := placeholderPattern.ReplaceAllStringFunc(b.fragments[0], func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := b.variables[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s: unset variables %v", b.basePrompt.ID, missing)
	}

	parts := append([]string{base}, b.fragments[1:]...)
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}
