package memory

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/iho/moneyledger/internal/usecase"
)

// DefaultCacheSize is used when a non-positive size is requested.
const DefaultCacheSize = 10_000

type cacheEntry struct {
	expiresAt time.Time
	value     []byte
}

// Cache implements usecase.Cache with a bounded LRU. Each entry carries its
// own deadline and expired entries are dropped on read.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, cacheEntry]
	now func() time.Time
}

// NewCache creates a new Cache holding at most size entries.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	l, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}

	return &Cache{lru: l, now: time.Now}, nil
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, usecase.ErrCacheMiss
	}

	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, usecase.ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)

	return out, nil
}

// Set stores a value with TTL. A non-positive ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.lru.Add(key, entry)

	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)

	return nil
}

// setIfAbsent stores value unless a live entry exists, which is returned instead.
func (c *Cache) setIfAbsent(key string, value []byte, ttl time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.lru.Get(key); ok {
		if entry.expiresAt.IsZero() || c.now().Before(entry.expiresAt) {
			return append([]byte(nil), entry.value...), true
		}
	}

	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, entry)

	return nil, false
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// NoopCache implements usecase.Cache by caching nothing.
type NoopCache struct{}

// NewNoopCache creates a new NoopCache.
func NewNoopCache() NoopCache {
	return NoopCache{}
}

// Get always misses.
func (NoopCache) Get(context.Context, string) ([]byte, error) {
	return nil, usecase.ErrCacheMiss
}

// Set discards the value.
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete does nothing.
func (NoopCache) Delete(context.Context, string) error {
	return nil
}
