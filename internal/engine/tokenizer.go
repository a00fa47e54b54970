package engine

import (
	"strings"
)

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code.
// This is approximate but useful for logging and metrics.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))

	// Whitespace-heavy text has fewer tokens per character
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// estimateUsage fills in token counts for providers that report none.
func estimateUsage(req CompletionRequest, resp CompletionResponse) Usage {
	if resp.Usage.Total > 0 || resp.Usage.Prompt > 0 || resp.Usage.Completion > 0 {
		return resp.Usage
	}
	u := Usage{
		Prompt:     EstimateTokens(req.System) + EstimateTokens(req.Prompt),
		Completion: EstimateTokens(resp.Text),
	}
	u.Total = u.Prompt + u.Completion
	return u
}
