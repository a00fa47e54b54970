package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/parsegen/internal/sandbox"
)

// CommandExtractor shells out to pdftotext (poppler) in layout mode.
type CommandExtractor struct {
	Runner  sandbox.Runner
	Command string        // defaults to "pdftotext"
	Timeout time.Duration // 0 uses the runner default
}

// Extract implements Extractor.
func (c CommandExtractor) Extract(ctx context.Context, path string) (string, error) {
	if !isPDF(path) {
		return "", ErrUnsupported
	}
	if c.Runner == nil {
		return "", fmt.Errorf("no command runner configured")
	}
	name := c.Command
	if name == "" {
		name = "pdftotext"
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	res, err := c.Runner.RunCmd(ctx, filepath.Dir(abs), name, []string{"-layout", filepath.Base(abs), "-"}, c.Timeout)
	if err != nil {
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, stderr)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return res.Stdout, nil
}
