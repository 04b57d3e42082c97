package storage

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Caching is a read-through Backend wrapper that keeps whole blobs in
// memory. Concurrent reads of the same name are coalesced into a single
// backend fetch via singleflight.
//
// Archive resources are write-once, so cached blobs never go stale in
// normal operation; a Write through the wrapper refreshes the entry.
type Caching struct {
	inner Backend

	mu    sync.RWMutex
	blobs map[string][]byte
	group singleflight.Group
}

// NewCaching wraps a backend with a blob cache.
func NewCaching(inner Backend) *Caching {
	return &Caching{
		inner: inner,
		blobs: make(map[string][]byte),
	}
}

// Exists reports whether the blob is cached or present in the inner
// backend.
func (c *Caching) Exists(ctx context.Context, name string) bool {
	c.mu.RLock()
	_, ok := c.blobs[name]
	c.mu.RUnlock()
	if ok {
		return true
	}
	return c.inner.Exists(ctx, name)
}

// Read returns the cached blob, fetching it from the inner backend on a
// miss.
func (c *Caching) Read(ctx context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.blobs[name]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		data, err := c.inner.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.blobs[name] = data
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Write passes through to the inner backend and refreshes the cache
// entry.
func (c *Caching) Write(ctx context.Context, name string, data []byte) error {
	if err := c.inner.Write(ctx, name, data); err != nil {
		return err
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	c.mu.Lock()
	c.blobs[name] = copied
	c.mu.Unlock()
	return nil
}
