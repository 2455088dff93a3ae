//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, EmbeddingDimensions: 256})
	ctx := context.Background()

	embedding, err := client.GenerateEmbedding(ctx, "pdf Extract text and tables from PDF files documents")

	require.NoError(t, err)
	assert.Len(t, embedding, 256)
}
