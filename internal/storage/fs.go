package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/classdeck/internal/checksum"
	"github.com/starford/classdeck/internal/models"
)

const tmpPattern = ".classdeck-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the container directory
}

// NewFS creates a provider rooted at root. The directory does not have to
// exist yet: operations fail until it does, and the container is never
// recreated implicitly.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute container directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes container root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of a container file.
func (f *FS) Read(path string) ([]byte, error) {
	data, _, err := f.ReadMeta(path)
	return data, err
}

// ReadMeta opens the file once and reads data and metadata from the same
// descriptor, so both describe the same version even if a writer swaps
// the file concurrently.
func (f *FS) ReadMeta(path string) ([]byte, models.FileMeta, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, models.FileMeta{}, err
	}
	fh, err := os.Open(abs)
	if err != nil {
		return nil, models.FileMeta{}, fmt.Errorf("storage: read %s: %w", path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, models.FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, models.FileMeta{}, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, models.FileMeta{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Size:      int64(len(data)),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Write atomically writes content: tmp file → fsync → rename. Readers see
// either the previous file or the new one, never a partial write.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Ensure creates the container directory if it is missing.
func (f *FS) Ensure() error {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("storage: create container: %w", err)
	}
	return nil
}
