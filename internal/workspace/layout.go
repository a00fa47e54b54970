// Package workspace locates per-target sample inputs and parser outputs.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ErrInputsMissing is returned when a target has no usable sample pair.
var ErrInputsMissing = errors.New("sample inputs not found")

// inputExts lists accepted sample document extensions in preference order.
var inputExts = []string{".pdf", ".txt"}

// Layout describes where targets live on disk:
//
//	<DataRoot>/<target>/<target>_sample.pdf   (or sample.pdf)
//	<DataRoot>/<target>/<target>_sample.csv   (or sample.csv)
//	<OutputDir>/<target>_parser.py
type Layout struct {
	DataRoot  string
	OutputDir string
}

// Inputs is the resolved sample pair for one target.
type Inputs struct {
	Document string
	Expected string
}

// Resolve finds the sample document and expected table for target. Each file
// is looked up on its own, and the target-prefixed name wins over the plain
// sample.* name.
func (l Layout) Resolve(target string) (Inputs, error) {
	if err := validTarget(target); err != nil {
		return Inputs{}, err
	}
	dir := filepath.Join(l.DataRoot, target)
	stems := []string{target + "_sample", "sample"}

	doc := firstFile(dir, stems, inputExts)
	expected := firstFile(dir, stems, []string{".csv"})
	if doc != "" && expected != "" {
		return Inputs{Document: doc, Expected: expected}, nil
	}

	return Inputs{}, fmt.Errorf("%w for target %q; expected a document at\n  %s\n  or %s\nand a table at\n  %s\n  or %s",
		ErrInputsMissing, target,
		filepath.Join(dir, target+"_sample.pdf"), filepath.Join(dir, "sample.pdf"),
		filepath.Join(dir, target+"_sample.csv"), filepath.Join(dir, "sample.csv"))
}

// firstFile returns the first existing dir/<stem><ext>, stems outranking
// extensions, or "" when none exists.
func firstFile(dir string, stems, exts []string) string {
	for _, stem := range stems {
		for _, ext := range exts {
			if p := filepath.Join(dir, stem+ext); isFile(p) {
				return p
			}
		}
	}
	return ""
}

// OutputPath returns where the parser for target is written.
func (l Layout) OutputPath(target string, ext string) string {
	if ext == "" {
		ext = ".py"
	}
	return filepath.Join(l.OutputDir, target+"_parser"+ext)
}

// EnsureOutputDir creates the output directory if needed.
func (l Layout) EnsureOutputDir() error {
	if err := os.MkdirAll(l.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}

// ListTargets returns the sorted names of DataRoot subdirectories that hold a
// sample pair. Hidden directories and those matched by <DataRoot>/.gitignore
// are skipped.
func (l Layout) ListTargets() ([]string, error) {
	entries, err := os.ReadDir(l.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root: %w", err)
	}

	gi, err := l.ignoreRules()
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if gi.MatchesPath(name + "/") {
			continue
		}
		if _, err := l.Resolve(name); err != nil {
			continue
		}
		targets = append(targets, name)
	}
	sort.Strings(targets)
	return targets, nil
}

func (l Layout) ignoreRules() (*ignore.GitIgnore, error) {
	path := filepath.Join(l.DataRoot, ".gitignore")
	if !isFile(path) {
		return ignore.CompileIgnoreLines(), nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return gi, nil
}

func validTarget(target string) error {
	if target == "" {
		return errors.New("target is required")
	}
	if target != filepath.Base(target) || target == "." || target == ".." {
		return fmt.Errorf("invalid target %q: must be a single directory name", target)
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
