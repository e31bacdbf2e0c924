package source

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"panorama-viewer/internal/tilecoord"
)

// CachedSource is a read-through LRU of encoded payload bytes in front
// of another source. A coordinate whose tile was evicted and is
// re-requested gets a brand-new tile, but its bytes are served from
// here instead of the backend when still cached.
type CachedSource struct {
	inner Source
	cache *lru.Cache[string, []byte]
}

// NewCachedSource wraps inner with an LRU holding up to capacity
// encoded payloads.
func NewCachedSource(inner Source, capacity int) (*CachedSource, error) {
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("create payload cache: %w", err)
	}
	return &CachedSource{inner: inner, cache: cache}, nil
}

var _ Source = (*CachedSource)(nil)

// Fetch serves from the cache when possible, otherwise fetches from
// the inner source and stores the result. Errors are not cached.
func (s *CachedSource) Fetch(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error) {
	key := coord.Key()
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	data, err := s.inner.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, data)
	return data, nil
}

// Len returns the number of cached payloads.
func (s *CachedSource) Len() int {
	return s.cache.Len()
}
