package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"spacebio-rag/internal/platform/logger"
)

// VectorCache stores query embeddings keyed by model and text digest.
type VectorCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool, error)
	SetVector(ctx context.Context, key string, vec []float32) error
}

// CachedEmbedder serves single-text calls from a cache before asking next.
// Batch calls bypass the cache. Cache failures never fail the request.
type CachedEmbedder struct {
	next  Embedder
	cache VectorCache
	model string
	log   *logger.Logger
}

func NewCachedEmbedder(next Embedder, cache VectorCache, model string, log *logger.Logger) *CachedEmbedder {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedEmbedder{next: next, cache: cache, model: model, log: log}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 || e.cache == nil {
		return e.next.Embed(ctx, texts)
	}

	key := e.key(texts[0])
	vec, ok, err := e.cache.GetVector(ctx, key)
	if err != nil {
		e.log.Warn("embedding cache read failed", "error", err)
	} else if ok && len(vec) > 0 {
		return [][]float32{vec}, nil
	}

	out, err := e.next.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) == 1 {
		if err := e.cache.SetVector(ctx, key, out[0]); err != nil {
			e.log.Warn("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.model + ":" + hex.EncodeToString(sum[:])
}
