// Package watcher reports settled changes to tracked workspace documents.
//
// Raw fsnotify events are coalesced per path: a path is reported once it
// has been quiet for the debounce window, and the reported kind is derived
// from the file's state at that moment rather than from the raw operations.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/naming"
)

// DefaultDebounce is the quiet period a path needs before it is reported.
const DefaultDebounce = 100 * time.Millisecond

// ErrStopped is returned when starting a watcher that was already stopped.
var ErrStopped = errors.New("watcher: stopped")

// ChangeHandler receives one event per settled change.
type ChangeHandler func(models.FileChangeEvent)

// ErrorHandler receives errors from the underlying event source.
type ErrorHandler func(error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithChangeHandler registers fn for change events.
func WithChangeHandler(fn ChangeHandler) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithErrorHandler registers fn for watch errors.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(w *Watcher) { w.onError = fn }
}

// Watcher observes one workspace root recursively. Handlers run on a
// dedicated goroutine and must not call Stop.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	onChange ChangeHandler
	onError  ErrorHandler

	mu       sync.Mutex
	running  bool
	stopped  bool
	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	// Owned by the run goroutine once started.
	pending map[string]time.Time
	known   map[string]struct{}
	dirs    map[string]struct{}

	out *queue
}

// New returns an idle watcher for root.
func New(root string, opts ...Option) *Watcher {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		pending:  make(map[string]time.Time),
		known:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		out:      newQueue(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string { return w.root }

// IsWatching reports whether the watcher is started and not yet stopped.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.stopped
}

// Start registers the tree under root and begins delivering events. It
// returns once the initial registration is complete, so files written
// afterwards are observed. Starting a running watcher is a no-op.
// The watcher stops by itself when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ErrStopped
	}
	if w.running {
		return nil
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watcher: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.addTree(w.root, true); err != nil {
		fsw.Close()
		w.fsw = nil
		return fmt.Errorf("watcher: %w", err)
	}

	w.logger.Info("watcher: started",
		slog.String("root", w.root),
		slog.Int("dirs", len(w.dirs)),
		slog.Int("documents", len(w.known)))

	w.running = true
	go w.out.run(w.deliver)
	go w.run(ctx)
	return nil
}

// Stop ends the watch and waits for in-flight handlers to return. It is
// safe to call more than once and on a watcher that never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	started := w.running
	w.stopped = true
	w.mu.Unlock()

	if !started {
		return
	}
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick > 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	ticker := time.NewTicker(tick)

	defer func() {
		ticker.Stop()
		w.fsw.Close()
		w.out.close()
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		w.logger.Info("watcher: stopped", slog.String("root", w.root))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: error", slog.String("error", err.Error()))
			w.out.push(item{err: err})
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	p := ev.Name
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || hidden(rel) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
			if addErr := w.addTree(p, false); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", p),
					slog.String("error", addErr.Error()))
			}
			return
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if _, ok := w.dirs[p]; ok {
			w.dropTree(p)
			return
		}
	}

	if !naming.IsDocument(p) || ev.Op == fsnotify.Chmod {
		return
	}
	w.pending[p] = time.Now()
}

// addTree watches dir and every non-hidden directory below it. Documents
// found are recorded as known when seeding, and otherwise queued so they
// surface as additions.
func (w *Watcher) addTree(dir string, seed bool) error {
	now := time.Now()
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if p != w.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, ok := w.dirs[p]; ok {
				return nil
			}
			if err := w.fsw.Add(p); err != nil {
				return err
			}
			w.dirs[p] = struct{}{}
			return nil
		}
		if !naming.IsDocument(p) {
			return nil
		}
		if seed {
			w.known[p] = struct{}{}
		} else {
			w.pending[p] = now
		}
		return nil
	})
}

// dropTree forgets dir and everything below it. Known documents inside are
// queued so they surface as removals.
func (w *Watcher) dropTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
			// Renamed directories keep their kernel watch; removed ones
			// have already lost it and report an error we ignore.
			_ = w.fsw.Remove(d)
		}
	}
	now := time.Now()
	for p := range w.known {
		if strings.HasPrefix(p, prefix) {
			w.pending[p] = now
		}
	}
}

// flush settles every path that has been quiet for the debounce window.
func (w *Watcher) flush(now time.Time) {
	var ready []string
	for p, seen := range w.pending {
		if now.Sub(seen) >= w.debounce {
			ready = append(ready, p)
		}
	}
	if len(ready) == 0 {
		return
	}
	slices.Sort(ready)
	for _, p := range ready {
		delete(w.pending, p)
		w.settle(p)
	}
}

func (w *Watcher) settle(p string) {
	info, err := os.Stat(p)
	present := err == nil && !info.IsDir()
	_, wasKnown := w.known[p]

	var kind models.EventType
	switch {
	case present && !wasKnown:
		w.known[p] = struct{}{}
		kind = models.EventAdd
	case present:
		kind = models.EventChange
	case wasKnown:
		delete(w.known, p)
		kind = models.EventRemove
	default:
		// Created and removed within one window.
		return
	}

	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	area, ok := Classify(rel)
	if !ok {
		return
	}
	ev := models.FileChangeEvent{
		Area:         area,
		Type:         kind,
		Path:         p,
		RelativePath: rel,
	}
	w.logger.Debug("watcher: change",
		slog.String("area", string(area)),
		slog.String("type", string(kind)),
		slog.String("path", rel))
	w.out.push(item{event: &ev})
}

func (w *Watcher) deliver(it item) {
	switch {
	case it.event != nil && w.onChange != nil:
		w.onChange(*it.event)
	case it.err != nil && w.onError != nil:
		w.onError(it.err)
	}
}
