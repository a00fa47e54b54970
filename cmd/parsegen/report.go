package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
)

// report prints the outcome of one run.
func report(w io.Writer, res engine.Result, maxAttempts int) {
	if res.Success {
		module := strings.TrimSuffix(filepath.Base(res.OutputPath), filepath.Ext(res.OutputPath))
		fmt.Fprintf(w, "SUCCESS: parser for %s generated\n", res.TargetID)
		fmt.Fprintf(w, "  attempts used: %d/%d\n", res.Attempts, maxAttempts)
		fmt.Fprintf(w, "  code length:   %d chars\n", res.CodeLength)
		fmt.Fprintf(w, "  output file:   %s\n", res.OutputPath)
		fmt.Fprintf(w, "  usage:         from %s import parse; df = parse(\"statement.pdf\")\n", module)
		return
	}

	fmt.Fprintf(w, "FAILED: no passing parser for %s\n", res.TargetID)
	fmt.Fprintf(w, "  attempts used: %d/%d\n", res.Attempts, maxAttempts)
	if res.LastFeedback != "" {
		fmt.Fprintf(w, "  last error:    %s\n", engine.Truncate(res.LastFeedback, 200))
	}
}
