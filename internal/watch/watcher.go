// Package watch reruns work when sample files change.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the sample file types that trigger a change.
var DefaultExtensions = []string{".pdf", ".txt", ".csv"}

// Watcher watches one directory and reports debounced batches of changed
// sample files.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	exts     map[string]bool
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]bool
}

// Options configures a Watcher. Zero values select the defaults.
type Options struct {
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// New creates a watcher for dir.
func New(dir string, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	w := &Watcher{
		dir:      dir,
		watcher:  fw,
		exts:     make(map[string]bool, len(exts)),
		debounce: opts.Debounce,
		logger:   opts.Logger,
		pending:  make(map[string]bool),
	}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w, nil
}

// Run delivers batches of changed file names (relative to the watched
// directory, sorted) to onChange until ctx is done. onChange runs on the
// watcher goroutine; changes made meanwhile are collected for the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, []string)) error {
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.eventLoop(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if paths := w.flush(); len(paths) > 0 {
				w.logger.Info("sample files changed", "dir", w.dir, "files", paths)
				onChange(ctx, paths)
			}
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent records a relevant write, create or rename.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !w.exts[strings.ToLower(filepath.Ext(name))] {
		return
	}

	w.mu.Lock()
	w.pending[name] = true
	w.mu.Unlock()
}

// flush returns and clears the pending file names.
func (w *Watcher) flush() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	sort.Strings(paths)
	return paths
}
