package engine

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for code extraction from LLM responses.
var (
	// taggedFencePattern matches a fenced block whose opening fence sits on its own line: ```python\n ... ```
	taggedFencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+.#-]*[ \t]*\r?\n(.*?)```")
	// inlineFencePattern matches a fence without a newline after the opener: ```code```
	inlineFencePattern = regexp.MustCompile("(?s)```(.*?)```")
	// openFencePattern matches a dangling opener when the reply was cut before the closing fence.
	openFencePattern = regexp.MustCompile("(?s)^.*?```[A-Za-z0-9_+.#-]*[ \t]*\r?\n?")
)

// ExtractCode returns the program body from an LLM reply. The first fenced
// block wins; text without fences is returned trimmed. The result never
// contains a fence, so ExtractCode(ExtractCode(s)) == ExtractCode(s).
func ExtractCode(raw string) string {
	if !strings.Contains(raw, "```") {
		return strings.TrimSpace(raw)
	}
	if m := taggedFencePattern.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := inlineFencePattern.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	// Single unmatched fence: drop everything up to and including the opener.
	body := openFencePattern.ReplaceAllString(raw, "")
	return strings.TrimSpace(strings.ReplaceAll(body, "```", ""))
}
