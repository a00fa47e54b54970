package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// analysisSchema is the shape requested from the planning call.
const analysisSchema = `{
  "type": "object",
  "required": ["transaction_pattern", "date_format", "amount_format"],
  "properties": {
    "transaction_pattern": {"type": "string", "minLength": 1},
    "date_format": {"type": "string"},
    "amount_format": {"type": "string"},
    "column_mapping": {"type": "object", "additionalProperties": {"type": "string"}},
    "challenges": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	analysisSchemaLoader = gojsonschema.NewStringLoader(analysisSchema)

	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Analysis is the structured description of a statement layout.
type Analysis struct {
	TransactionPattern string            `json:"transaction_pattern"`
	DateFormat         string            `json:"date_format"`
	AmountFormat       string            `json:"amount_format"`
	ColumnMapping      map[string]string `json:"column_mapping"`
	Challenges         []string          `json:"challenges"`
}

// AnalysisError lists the schema violations of a planning reply.
type AnalysisError struct {
	Errors []string
}

func (e *AnalysisError) Error() string {
	return "analysis does not match schema: " + strings.Join(e.Errors, "; ")
}

// ParseAnalysis extracts the JSON object from an LLM reply and validates it.
func ParseAnalysis(reply string) (*Analysis, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	result, err := gojsonschema.Validate(analysisSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &AnalysisError{Errors: msgs}
	}

	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

func extractJSON(content string) string {
	var raw string
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// Render formats the analysis as compact prompt context. Mapped columns are
// listed in the order given by columns, then any others alphabetically.
func (a *Analysis) Render(columns []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction pattern: %s\n", a.TransactionPattern)
	if a.DateFormat != "" {
		fmt.Fprintf(&sb, "Date format: %s\n", a.DateFormat)
	}
	if a.AmountFormat != "" {
		fmt.Fprintf(&sb, "Amount format: %s\n", a.AmountFormat)
	}

	if len(a.ColumnMapping) > 0 {
		sb.WriteString("Column mapping:\n")
		seen := make(map[string]bool, len(a.ColumnMapping))
		for _, c := range columns {
			if desc, ok := a.ColumnMapping[c]; ok {
				fmt.Fprintf(&sb, "- %s: %s\n", c, desc)
				seen[c] = true
			}
		}
		var rest []string
		for c := range a.ColumnMapping {
			if !seen[c] {
				rest = append(rest, c)
			}
		}
		sort.Strings(rest)
		for _, c := range rest {
			fmt.Fprintf(&sb, "- %s: %s\n", c, a.ColumnMapping[c])
		}
	}

	if len(a.Challenges) > 0 {
		sb.WriteString("Challenges:\n")
		for _, c := range a.Challenges {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
