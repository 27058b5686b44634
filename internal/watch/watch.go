// Package watch reports batches of changed source files under a directory
// tree. Events are debounced: a batch is delivered once the tree has been
// quiet for the configured delay.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/codegraph/internal/discover"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Config holds watcher configuration.
type Config struct {
	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration
	// Match filters which file paths count as changes. Nil accepts all.
	Match func(path string) bool
	// OnChange receives the sorted, distinct paths changed since the
	// previous batch. Calls never overlap.
	OnChange func(ctx context.Context, paths []string)
	Logger   *slog.Logger
}

// Watcher watches a directory tree. fsnotify is not recursive, so every
// directory is added on its own and new directories are added as they
// appear.
type Watcher struct {
	fsw      *fsnotify.Watcher
	cfg      Config
	logger   *slog.Logger
	mu       sync.Mutex
	watched  map[string]bool
	pending  map[string]struct{}
	timer    *time.Timer
	fire     chan struct{}
	closeErr error
	once     sync.Once
}

// New creates a watcher. Call AddTree, then Run.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	return &Watcher{
		fsw:     fsw,
		cfg:     cfg,
		logger:  logger,
		watched: make(map[string]bool),
		pending: make(map[string]struct{}),
		fire:    make(chan struct{}, 1),
	}, nil
}

// AddTree watches root and every directory below it that a walk would not
// skip.
func (w *Watcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", root, err)
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != abs && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}
	w.watched[dir] = true
	return nil
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Run processes events until ctx is done or the watcher is closed.
// OnChange is called from this goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-w.fire:
			if paths := w.drain(); len(paths) > 0 && w.cfg.OnChange != nil {
				w.cfg.OnChange(ctx, paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if discover.SkipDir(filepath.Base(event.Name)) {
				return
			}
			if err := w.AddTree(event.Name); err != nil {
				w.logger.Warn("watch new directory failed", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.cfg.Match != nil && !w.cfg.Match(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule records path and restarts the quiet-period timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]struct{})
	return paths
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		w.stopTimer()
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}
