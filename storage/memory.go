package storage

import (
	"context"
	"sync"
)

// Memory is an in-memory Backend. It stores blobs in a map without any
// filesystem dependency and is the default choice for tests and for
// assembling archives that are shipped elsewhere.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates a new in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
	}
}

// Exists reports whether a blob exists under name.
func (m *Memory) Exists(_ context.Context, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[name]
	return ok
}

// Read returns the blob stored under name.
func (m *Memory) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation.
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Write stores data under name, replacing any previous blob.
func (m *Memory) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	m.blobs[name] = copied
	return nil
}

// Names returns the names of all stored blobs. Useful in tests that
// assert an operation left the backend untouched.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	return names
}
