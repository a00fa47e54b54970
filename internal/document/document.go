// Package document turns a sample source document into plain text.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned by an extractor that does not handle the file type.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrNoText is returned when a document yields no text.
	ErrNoText = errors.New("document contains no extractable text")
)

// Extractor returns the text content of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chain tries each extractor in order and returns the first non-empty text.
type Chain []Extractor

// Extract implements Extractor.
func (c Chain) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}

	var errs []error
	for _, ex := range c {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := ex.Extract(ctx, path)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoText
		}
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrUnsupported) {
			errs = append(errs, fmt.Errorf("%T: %w", ex, err))
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	return "", errors.Join(errs...)
}

// TextExtractor reads plain text files (.txt).
type TextExtractor struct{}

// Extract implements Extractor.
func (TextExtractor) Extract(_ context.Context, path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".txt") {
		return "", ErrUnsupported
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
