package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEncoder produces embeddings through an OpenAI-compatible embeddings endpoint.
type OpenAIEncoder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEncoder creates an encoder for model. baseURL may be empty for the default endpoint.
func NewOpenAIEncoder(apiKey, baseURL, model string, dimensions int) (*OpenAIEncoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai encoder requires an API key")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("openai encoder requires positive dimensions")
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIEncoder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed requests one embedding of exactly Dimensions() values.
func (e *OpenAIEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      []string{text},
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyEmbedding
	}
	emb := resp.Data[0].Embedding
	if len(emb) != e.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(emb), e.dimensions)
	}
	return emb, nil
}

// Dimensions returns the requested embedding dimension.
func (e *OpenAIEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEncoder.
func (e *OpenAIEncoder) Close() error {
	return nil
}
