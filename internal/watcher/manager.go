package watcher

import (
	"context"
	"path/filepath"
	"sync"
)

// Manager keeps at most one active watcher. Watching a different root
// stops the previous watcher first.
type Manager struct {
	mu      sync.Mutex
	opts    []Option
	current *Watcher
}

// NewManager returns a Manager whose watchers are built with opts.
func NewManager(opts ...Option) *Manager {
	return &Manager{opts: opts}
}

// Watch starts watching root, reusing the active watcher when it already
// watches the same root.
func (m *Manager) Watch(ctx context.Context, root string) (*Watcher, error) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	root = filepath.Clean(root)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.Root() == root && m.current.IsWatching() {
			return m.current, nil
		}
		m.current.Stop()
		m.current = nil
	}

	w := New(root, m.opts...)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	m.current = w
	return w, nil
}

// Current returns the active watcher, or nil.
func (m *Manager) Current() *Watcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close stops the active watcher.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
}
