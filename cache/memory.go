package cache

import (
	"context"
	"sync"
	"time"

	"github.com/winddown-app/winddown"
)

// item is a single cache entry with an optional expiration time.
type item struct {
	value      []byte
	expiration time.Time
}

// MemoryCache implements the winddown.Cache interface using an
// in-memory map. A background goroutine sweeps expired entries.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]item
	stop  chan struct{}
}

// NewMemoryCache initializes a new MemoryCache and starts its sweeper.
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]item),
		stop:  make(chan struct{}),
	}
	go cache.gc()
	return cache
}

// Get retrieves a value by key. Missing and expired keys both return
// winddown.ErrNotFound so callers treat them as a plain miss.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, exists := c.items[key]
	if !exists {
		return nil, winddown.ErrNotFound
	}

	if !it.expiration.IsZero() && time.Now().After(it.expiration) {
		return nil, winddown.ErrNotFound
	}

	return it.value, nil
}

// Set stores a value with an optional TTL. A TTL of zero means no
// expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}

	c.items[key] = item{
		value:      value,
		expiration: expiration,
	}
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Close stops the sweeper and drops all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.stop)
	c.items = make(map[string]item)
	return nil
}

// gc periodically removes expired entries.
func (c *MemoryCache) gc() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, it := range c.items {
				if !it.expiration.IsZero() && now.After(it.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
