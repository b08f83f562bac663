// Package storage defines the local file-system abstraction behind the
// uploader and binary downloads.
package storage

import "time"

// File describes one file under the storage root.
type File struct {
	// Path is relative to the root and uses the OS separator.
	Path     string
	Checksum string
	Size     int64
	ModTime  time.Time
}

// Matcher selects the files List reports.
type Matcher func(path string) bool

// Provider is the interface for file operations relative to a root.
type Provider interface {
	// List returns every file under dir accepted by match. A nil match
	// accepts all files.
	List(dir string, match Matcher) ([]File, error)
	// Stat describes the file at path.
	Stat(path string) (File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Abs resolves path against the root, rejecting escapes.
	Abs(path string) (string, error)
}
