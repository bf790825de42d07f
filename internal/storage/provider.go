// Package storage defines the workspace file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for workspace file operations. Every path is
// relative to the workspace root; paths escaping the root are rejected.
type Provider interface {
	// Root returns the absolute workspace root.
	Root() string
	// Abs resolves rel against the root.
	Abs(rel string) (string, error)
	// ReadFile returns the raw bytes of the file at rel.
	ReadFile(rel string) ([]byte, error)
	// WriteFile atomically replaces the file at rel, creating parent directories.
	WriteFile(rel string, content []byte) error
	// ReadDir lists the immediate entries of the directory at rel.
	ReadDir(rel string) ([]fs.DirEntry, error)
	// Stat describes the entry at rel.
	Stat(rel string) (fs.FileInfo, error)
	// MkdirAll creates the directory at rel and any missing parents.
	MkdirAll(rel string) error
	// Rename moves oldRel to newRel. It never overwrites an existing entry.
	Rename(oldRel, newRel string) error
	// Remove deletes the single file at rel.
	Remove(rel string) error
	// RemoveAll deletes the directory tree at rel. The directory must exist.
	RemoveAll(rel string) error
}
