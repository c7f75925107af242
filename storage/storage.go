// Package storage abstracts the filesystem operations used by the clip
// pipeline so a networked mount and a local disk are interchangeable, and so
// tests can substitute fakes.
package storage

import (
	"io/fs"
	"os"
)

// Storage is the filesystem collaborator for the clip pipeline. All pipeline
// I/O goes through this interface.
type Storage interface {
	// EnsureDir creates dir and any missing parents.
	EnsureDir(dir string) error
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte) error
	// Stat returns file metadata. The pipeline also uses it as a cache
	// refresh probe on networked mounts, where listing a directory does not
	// guarantee the entry's content is visible yet.
	Stat(path string) (fs.FileInfo, error)
	// ReadFile returns the full contents of path.
	ReadFile(path string) ([]byte, error)
	// RemoveAll deletes path recursively, ignoring missing files.
	RemoveAll(path string) error
}

// Local is the os-backed Storage implementation.
type Local struct{}

// NewLocal returns a Storage backed by the local (or locally mounted)
// filesystem.
func NewLocal() Local { return Local{} }

func (Local) EnsureDir(dir string) error { return os.MkdirAll(dir, 0o755) }

func (Local) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (Local) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (Local) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (Local) RemoveAll(path string) error { return os.RemoveAll(path) }
