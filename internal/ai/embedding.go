package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultEmbedBatchSize = 64

// ErrEmbeddingService covers every failure of the embedding backend. Callers
// see it wrapped and must not retry on their own.
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder maps texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Embed sends texts in sequential batches and returns vectors in input order.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: batch,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: embedding batch %d-%d failed: %v", ErrEmbeddingService, start, end, err)
		}
		vectors, err := orderEmbeddings(resp.Data, len(batch))
		if err != nil {
			return nil, fmt.Errorf("%w: embedding batch %d-%d: %v", ErrEmbeddingService, start, end, err)
		}
		for _, v := range vectors {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("%w: inconsistent embedding dimension %d, want %d", ErrEmbeddingService, len(v), dim)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// orderEmbeddings places each returned vector at its reported index.
func orderEmbeddings(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(data), want)
	}
	vectors := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || d.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if vectors[d.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
