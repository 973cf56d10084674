// Package cache provides settings cache implementations: an in-memory
// cache with TTL-based expiry and a Redis-backed cache.
package cache

import "github.com/winddown-app/winddown"

// Compile-time interface checks.
var (
	_ winddown.Cache = (*MemoryCache)(nil)
	_ winddown.Cache = (*RedisCache)(nil)
)
