package sandbox

import (
	"path/filepath"
	"strings"
)

// DockerImage returns the image used to run the executable name. A custom
// image in config takes precedence; it must provide the parser's runtime
// dependencies (pandas, pdfplumber) because containers run without network.
func DockerImage(name string, config Config) string {
	if config.DockerImage != "" {
		return config.DockerImage
	}

	base := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasPrefix(base, "python"):
		return "python:3.12-slim"
	default:
		return "alpine:latest"
	}
}
