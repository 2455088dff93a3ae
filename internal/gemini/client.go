package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultEmbeddingModel is the Gemini model used for skill and query embeddings
const DefaultEmbeddingModel = "gemini-embedding-001"

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrNoEmbedding     = errors.New("no embedding data returned")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI is the slice of the genai models service this package needs.
type EmbeddingAPI interface {
	EmbedContent(ctx context.Context, text string) ([]float32, error)
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// Client generates embeddings through the Gemini API.
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
}

// GenaiAdapter calls the Gemini developer API.
type GenaiAdapter struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGenaiAdapter(ctx context.Context, apiKey, model string, dimensions int) (*GenaiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenaiAdapter{client: client, model: model, dimensions: dimensions}, nil
}

// EmbedContent embeds a single text.
func (a *GenaiAdapter) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{}
	if a.dimensions > 0 {
		dims := int32(a.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := a.client.Models.EmbedContent(ctx, a.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbedding
	}
	return resp.Embeddings[0].Values, nil
}

// NewClient creates a Gemini embedding client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}

	api, err := NewGenaiAdapter(ctx, cfg.APIKey, model, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, model: model, dimensions: cfg.EmbeddingDimensions}, nil
}

// ProviderID identifies the provider and model in index signatures and cache keys.
func (c *Client) ProviderID() string {
	return "gemini:" + c.model
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.EmbedContent(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	if c.dimensions > 0 && len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}
	return embedding, nil
}
