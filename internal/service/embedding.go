package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache stores query embeddings keyed by provider and normalized text.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vector []float32)
}

// CachedEmbedder memoizes query embeddings. Rebuilds use the raw client; only
// repeated queries benefit from the cache.
type CachedEmbedder struct {
	client   EmbeddingClient
	cache    EmbeddingCache
	provider string
	metrics  *telemetry.Metrics
}

// NewCachedEmbedder wraps client with cache. provider namespaces cache keys.
func NewCachedEmbedder(client EmbeddingClient, cache EmbeddingCache, provider string, metrics *telemetry.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		client:   client,
		cache:    cache,
		provider: provider,
		metrics:  metrics,
	}
}

// GenerateEmbedding returns a cached embedding when present, else calls the client and stores the result.
func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := embeddingCacheKey(c.provider, text)

	if vector, ok := c.cache.Get(ctx, key); ok {
		c.metrics.ObserveEmbedCache(true)
		return vector, nil
	}
	c.metrics.ObserveEmbedCache(false)

	vector, err := c.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) > 0 {
		c.cache.Set(ctx, key, vector)
	}
	return vector, nil
}

func embeddingCacheKey(provider, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return provider + ":" + hex.EncodeToString(sum[:])
}
