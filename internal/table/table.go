// Package table holds the tabular data model shared by the planner and the
// validator: the expected output loaded from a CSV sample and the output a
// candidate parser produced.
package table

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Table is an ordered list of named columns and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns a copy of t limited to the first n rows.
func (t *Table) Head(n int) *Table {
	if t == nil {
		return nil
	}
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows[:n] {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out
}

// String renders t as aligned text, the same way it is shown in prompts.
func (t *Table) String() string {
	if t == nil {
		return ""
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// maxDiffs caps the number of mismatches reported by Diff.
const maxDiffs = 10

// Diff compares got against the expected table t and returns human readable
// mismatches, at most maxDiffs of them. An empty result means the tables are
// equal. Numeric cells compare by value, so "1,200.50" equals "1200.5".
func (t *Table) Diff(got *Table) []string {
	if got == nil {
		return []string{"no table produced"}
	}

	var diffs []string
	add := func(format string, args ...any) bool {
		diffs = append(diffs, fmt.Sprintf(format, args...))
		return len(diffs) < maxDiffs
	}

	if !equalStrings(t.Columns, got.Columns) {
		add("columns differ: expected %v, got %v", t.Columns, got.Columns)
		return diffs
	}
	if len(t.Rows) != len(got.Rows) {
		if !add("row count differs: expected %d, got %d", len(t.Rows), len(got.Rows)) {
			return diffs
		}
	}

	n := min(len(t.Rows), len(got.Rows))
	for i := 0; i < n; i++ {
		want, have := t.Rows[i], got.Rows[i]
		for j, col := range t.Columns {
			w, h := cell(want, j), cell(have, j)
			if !CellsEqual(w, h) {
				if !add("row %d column %q: expected %q, got %q", i+1, col, w, h) {
					return diffs
				}
			}
		}
	}
	return diffs
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

// CellsEqual compares two cells after trimming. When both parse as numbers
// they are compared by value.
func CellsEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	fa, okA := parseNumber(a)
	fb, okB := parseNumber(b)
	return okA && okB && fa == fb
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
