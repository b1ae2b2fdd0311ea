package memory

import (
	"context"
	"time"
)

// PendingMarker is stored under a key while its first request is in flight.
const PendingMarker = "processing"

// IdempotencyStore implements usecase.IdempotencyStore on top of a Cache.
// It is only safe for a single server process.
type IdempotencyStore struct {
	cache *Cache
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(cache *Cache) *IdempotencyStore {
	return &IdempotencyStore{cache: cache}
}

// CheckAndSet claims key with response (or PendingMarker when nil) unless it
// already exists, in which case the stored value is returned.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	value := response
	if value == nil {
		value = []byte(PendingMarker)
	}

	existing, found := s.cache.setIfAbsent(key, value, ttl)
	return found, existing, nil
}

// Update replaces the stored value with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, key, response, ttl)
}

// Release drops key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
