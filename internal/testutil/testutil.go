// Package testutil provides shared test helpers for setting up workspaces.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/tracker/internal/naming"
	"github.com/starford/tracker/internal/storage"
)

// Workspace creates a temporary workspace directory with the required
// layout and a storage.Provider rooted at it.
func Workspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for _, d := range naming.RequiredDirs() {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// WriteFile writes content at rel beneath root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Clock is a settable naming.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a Clock reading midday UTC of day (YYYY-MM-DD).
func FixedClock(t *testing.T, day string) *Clock {
	t.Helper()
	c := &Clock{}
	c.Set(t, day)
	return c
}

// Now implements naming.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to midday UTC of day.
func (c *Clock) Set(t *testing.T, day string) {
	t.Helper()
	d, err := time.Parse(naming.DateLayout, day)
	if err != nil {
		t.Fatal(err)
	}
	c.mu.Lock()
	c.now = d.Add(12 * time.Hour)
	c.mu.Unlock()
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
