// Package watch reloads the page catalog when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tapedeck/internal/pages"
)

// DefaultDebounce absorbs the burst of events a single editor save makes.
const DefaultDebounce = 150 * time.Millisecond

// CatalogWatcher watches one catalog file.
type CatalogWatcher struct {
	path     string
	debounce time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// Option configures a CatalogWatcher.
type Option func(*CatalogWatcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *CatalogWatcher) { w.debounce = d }
}

// WithClock sets the clock driving the debounce.
func WithClock(c clock.Clock) Option {
	return func(w *CatalogWatcher) { w.clock = c }
}

// WithLogger sets the logger for reload failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *CatalogWatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewCatalogWatcher prepares a watcher for path. Nothing is watched until
// Run.
func NewCatalogWatcher(path string, opts ...Option) *CatalogWatcher {
	w := &CatalogWatcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		clock:    clock.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched file.
func (w *CatalogWatcher) Path() string { return w.path }

// Run watches until ctx is done. Every settled change that parses is
// handed to onChange from a timer goroutine; callers marshal it onto
// their own loop. Files that fail to parse are logged and skipped.
func (w *CatalogWatcher) Run(ctx context.Context, onChange func(*pages.Catalog)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory: editors often replace the file by rename.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	debouncer := NewDebouncer(w.debounce, w.clock)
	defer debouncer.Cancel()

	reload := func() {
		c, err := pages.LoadCatalog(w.path)
		if err != nil {
			w.logger.Warn("catalog reload failed", zap.String("path", w.path), zap.Error(err))
			return
		}
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("catalog changed", zap.String("path", w.path), zap.Int("pages", len(c.Pages())))
		onChange(c)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debouncer.Debounce(reload)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
