package storage

import (
	"context"
	"time"

	"sarinfer/internal/models"
)

// CachedStore caches Get results of another MetadataStore. Writes through
// this store invalidate the cached record; writes made by other processes
// are visible once the TTL lapses.
type CachedStore struct {
	MetadataStore
	cache *LRUCache[*models.ModelMetadata]
}

// NewCachedStore wraps store with an LRU cache of the given size and TTL
func NewCachedStore(store MetadataStore, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		MetadataStore: store,
		cache:         NewLRUCache[*models.ModelMetadata](size, ttl),
	}
}

func (s *CachedStore) Get(ctx context.Context, modelID string) (*models.ModelMetadata, bool, error) {
	if cached, ok := s.cache.Get(modelID); ok {
		return cached.Clone(), true, nil
	}

	m, found, err := s.MetadataStore.Get(ctx, modelID)
	if err != nil || !found {
		return m, found, err
	}
	s.cache.Set(modelID, m.Clone())
	return m, true, nil
}

func (s *CachedStore) Update(ctx context.Context, modelID string, update models.MetadataUpdate) (int64, error) {
	s.cache.Delete(modelID)
	return s.MetadataStore.Update(ctx, modelID, update)
}

func (s *CachedStore) Delete(ctx context.Context, modelID string) (int64, error) {
	s.cache.Delete(modelID)
	return s.MetadataStore.Delete(ctx, modelID)
}

// Stats returns the cache statistics
func (s *CachedStore) Stats() CacheStats {
	return s.cache.GetStats()
}
