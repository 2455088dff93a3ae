// Package embedding selects the configured embedding provider and query cache.
package embedding

import (
	"context"

	"github.com/cloo-solutions/skilldex/internal/cache"
	"github.com/cloo-solutions/skilldex/internal/config"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/gemini"
	"github.com/cloo-solutions/skilldex/internal/openai"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Provider is an embedding client that can name itself.
type Provider interface {
	service.EmbeddingClient
	ProviderID() string
}

// New returns the configured provider, or nil when embeddings are disabled.
// A provider selected without its credential is a config error.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.EmbeddingProvider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, domain.ErrMissingOpenAIKey
		}
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.OpenAIEmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		}), nil
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, domain.ErrMissingGeminiKey
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:              cfg.GeminiAPIKey,
			EmbeddingModel:      cfg.GeminiEmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfig, "failed to create gemini client", err)
		}
		return client, nil
	default:
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfig, "unsupported embedding provider "+cfg.EmbeddingProvider, domain.ErrUnknownEmbeddingProvider)
	}
}

// ProviderID returns p's id, or "" when p is nil.
func ProviderID(p Provider) string {
	if p == nil {
		return ""
	}
	return p.ProviderID()
}

// NewQueryEmbedder wraps p with the query embedding cache: Redis when REDIS_URL is set,
// otherwise an in-process LRU. The returned close func releases the cache.
func NewQueryEmbedder(ctx context.Context, cfg *config.Config, p Provider, metrics *telemetry.Metrics) (service.EmbeddingClient, func(), error) {
	noop := func() {}
	if p == nil {
		return nil, noop, nil
	}

	if cfg.HasRedis() {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.EmbedCacheTTL)
		if err != nil {
			return nil, noop, err
		}
		logrus.Info("using redis query embedding cache")
		return service.NewCachedEmbedder(p, redisCache, p.ProviderID(), metrics), func() { redisCache.Close() }, nil
	}

	if cfg.EmbedCacheSize <= 0 {
		return p, noop, nil
	}
	return service.NewCachedEmbedder(p, cache.NewLRU(cfg.EmbedCacheSize, cfg.EmbedCacheTTL), p.ProviderID(), metrics), noop, nil
}
