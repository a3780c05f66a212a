package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig configures the embedding provider client. Dimensions is the
// vector size the configured model produces and must match the store schema.
type EmbedderConfig struct {
	Model      string
	APIKey     string
	Dimensions int
}

// Embedder calls the embedding provider. A batch of N inputs returns exactly
// N vectors in input order.
type Embedder struct {
	config EmbedderConfig
	client *openai.LLM
}

func NewEmbedder(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-large"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 3072
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("embedding provider API key is required")
	}

	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{config: config, client: client}, nil
}

// Dimensions reports the vector size of the configured model.
func (e *Embedder) Dimensions() int {
	return e.config.Dimensions
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	for _, v := range vectors {
		if len(v) != e.config.Dimensions {
			return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(v), e.config.Dimensions)
		}
	}
	return vectors, nil
}

func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
