package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/flatarc/internal/mmap"
)

// Dir is a Backend storing one file per blob under a root directory.
//
// Reads are memory-mapped, so the byte slices handed out alias the
// mapped files and stay valid until the Dir is closed. This is what
// makes archive views zero-copy end to end: an ArrayView over a
// directory-backed resource reads straight from the page cache.
//
// Writes go through a temp file and an atomic rename, so a crashed
// writer never leaves a half-visible resource.
type Dir struct {
	root string

	mu       sync.Mutex
	mappings []*mmap.Mapping
}

// NewDir creates a directory backend rooted at root. The directory is
// created if it does not exist.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.root, name)
}

// Exists reports whether a blob file exists under name.
func (d *Dir) Exists(_ context.Context, name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

// Read memory-maps the blob file and returns the mapped bytes.
// The slice is valid until the Dir is closed.
func (d *Dir) Read(_ context.Context, name string) ([]byte, error) {
	m, err := mmap.Open(d.path(name))
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.mappings = append(d.mappings, m)
	d.mu.Unlock()

	return m.Bytes(), nil
}

// Write persists data to a temp file in the root directory and renames
// it into place.
func (d *Dir) Write(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(d.root, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0o644)

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, d.path(name))
}

// Close unmaps every mapping handed out by Read. All byte slices
// obtained from this backend become invalid.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, m := range d.mappings {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.mappings = nil
	return firstErr
}
