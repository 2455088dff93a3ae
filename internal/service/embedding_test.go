package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_HitAndMiss(t *testing.T) {
	client := new(MockEmbeddingClient)
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	embedder := NewCachedEmbedder(client, newMemoryCache(), "openai:text-embedding-3-small", metrics)

	client.On("GenerateEmbedding", mock.Anything, "extract pdf tables").Return([]float32{0.1, 0.2}, nil).Once()

	ctx := context.Background()
	first, err := embedder.GenerateEmbedding(ctx, "extract pdf tables")
	require.NoError(t, err)
	second, err := embedder.GenerateEmbedding(ctx, "  extract   pdf\ttables ")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmbedCacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EmbedCacheMissesTotal))
	client.AssertExpectations(t)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	client := new(MockEmbeddingClient)
	embedder := NewCachedEmbedder(client, newMemoryCache(), "gemini:gemini-embedding-001", nil)

	client.On("GenerateEmbedding", mock.Anything, "pdf").Return(nil, errors.New("rate limited")).Once()
	client.On("GenerateEmbedding", mock.Anything, "pdf").Return([]float32{1}, nil).Once()

	_, err := embedder.GenerateEmbedding(context.Background(), "pdf")
	assert.Error(t, err)

	vector, err := embedder.GenerateEmbedding(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vector)
	client.AssertExpectations(t)
}

func TestEmbeddingCacheKey(t *testing.T) {
	a := embeddingCacheKey("openai:m", "extract  pdf")
	b := embeddingCacheKey("openai:m", "extract pdf")
	c := embeddingCacheKey("gemini:m", "extract pdf")
	d := embeddingCacheKey("openai:m", "Extract pdf")

	assert.Equal(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotEqual(t, b, d)
	assert.Contains(t, a, "openai:m:")
}
