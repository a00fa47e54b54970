// Package agent implements the planning, generation, validation and
// reflection components driven by the engine's orchestration loop.
package agent

import (
	"strings"
)

// Language describes the target language of generated parsers: how the
// program is declared, checked, saved and run.
type Language struct {
	Name        string
	Signature   string // required entry point, as shown to the model
	EntryPoint  string // text that declares the entry point
	TableMarker string // text that constructs the tabular result
	FileExt     string
	Interpreter string
}

// Python is the parser language: a parse function returning a pandas DataFrame.
var Python = Language{
	Name:        "Python",
	Signature:   "def parse(pdf_path: str) -> pd.DataFrame",
	EntryPoint:  "def parse(",
	TableMarker: "pd.DataFrame",
	FileExt:     ".py",
	Interpreter: "python3",
}

// CheckStructure reports the required elements missing from code. An empty
// result means the candidate passes the structural check. The check is purely
// textual and deterministic.
func CheckStructure(code string, lang Language) []string {
	var missing []string
	if !strings.Contains(code, lang.EntryPoint) {
		missing = append(missing, strings.TrimSuffix(lang.EntryPoint, "(")+"() function")
	}
	if !strings.Contains(code, lang.TableMarker) {
		missing = append(missing, "DataFrame return")
	}
	return missing
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
