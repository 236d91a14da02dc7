// Package storage defines the shared container: the directory reachable by
// every cooperating process, where the snapshot lives.
package storage

import "github.com/starford/classdeck/internal/models"

// Provider is the interface for shared container file operations.
type Provider interface {
	// Root returns the absolute container directory.
	Root() string
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// ReadMeta returns the bytes and metadata of one version of the file.
	ReadMeta(path string) ([]byte, models.FileMeta, error)
	// Write atomically replaces the file at path (relative to root).
	Write(path string, content []byte) error
}
