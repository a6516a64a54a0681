package usecase

import (
	"context"
	"encoding/json"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const cacheNamespaceEmbedding = "embedding"

// CachingEmbedder is a cache-aside decorator over an Embedder. Identical
// texts hit the cache instead of the model; cache trouble falls through
// to the model.
type CachingEmbedder struct {
	inner ports.Embedder
	cache ports.CacheStore
}

var _ ports.Embedder = (*CachingEmbedder)(nil)

func NewCachingEmbedder(inner ports.Embedder, cache ports.CacheStore) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache}
}

func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := domain.CacheKeyFor(text)
	if data, ok, _ := e.cache.Get(ctx, cacheNamespaceEmbedding, key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(ctx, cacheNamespaceEmbedding, key, data, 0)
	}
	return vec, nil
}
