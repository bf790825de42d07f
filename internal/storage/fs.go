package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/tracker/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to workspace directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root implements Provider.
func (f *FS) Root() string { return f.root }

// Abs implements Provider.
func (f *FS) Abs(rel string) (string, error) { return f.safePath(rel) }

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: storage: absolute paths not allowed: %s", apperr.ErrInvalidInput, rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("%w: storage: path escapes workspace root: %s", apperr.ErrInvalidInput, rel)
	}
	return abs, nil
}

// wrap annotates err; missing entries also match apperr.ErrNotFound.
func wrap(op, rel string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w: %w", op, rel, apperr.ErrNotFound, err)
	}
	return fmt.Errorf("storage: %s %s: %w", op, rel, err)
}

// ReadFile implements Provider.
func (f *FS) ReadFile(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, wrap("read", rel, err)
	}
	return data, nil
}

// WriteFile implements Provider. The content lands via temp file, fsync and
// rename, so readers never observe a partial document.
func (f *FS) WriteFile(rel string, content []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return wrap("mkdir", rel, err)
	}
	_, statErr := os.Stat(abs)
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return wrap("write", rel, err)
	}
	// atomic.WriteFile keeps the mode of an existing file but creates new
	// ones with the temp file's 0600.
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := os.Chmod(abs, 0o644); err != nil {
			return wrap("chmod", rel, err)
		}
	}
	return nil
}

// ReadDir implements Provider.
func (f *FS) ReadDir(rel string) ([]fs.DirEntry, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, wrap("readdir", rel, err)
	}
	return entries, nil
}

// Stat implements Provider.
func (f *FS) Stat(rel string) (fs.FileInfo, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, wrap("stat", rel, err)
	}
	return info, nil
}

// MkdirAll implements Provider.
func (f *FS) MkdirAll(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return wrap("mkdir", rel, err)
	}
	return nil
}

// Rename implements Provider. An occupied destination fails with
// apperr.ErrConflict instead of relying on platform rename semantics.
func (f *FS) Rename(oldRel, newRel string) error {
	absOld, err := f.safePath(oldRel)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newRel)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(absOld); err != nil {
		return wrap("move", oldRel, err)
	}
	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("storage: move %s: %w: %s already exists", oldRel, apperr.ErrConflict, newRel)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return wrap("mkdir for move", newRel, err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return wrap("move", oldRel, err)
	}
	return nil
}

// Remove implements Provider.
func (f *FS) Remove(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return wrap("delete", rel, err)
	}
	return nil
}

// RemoveAll implements Provider. Unlike os.RemoveAll a missing directory is
// an error.
func (f *FS) RemoveAll(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("%w: storage: refusing to remove workspace root", apperr.ErrInvalidInput)
	}
	if _, err := os.Lstat(abs); err != nil {
		return wrap("delete", rel, err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return wrap("delete", rel, err)
	}
	return nil
}
