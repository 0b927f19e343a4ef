package index

import (
	"context"
	"errors"
	"fmt"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/model"
)

var ErrEmptyBuild = errors.New("no records to index")

// Build embeds every record's text and returns an index whose ordinal i holds
// the normalised vector of records[i]. Record ids must equal their positions.
func Build(ctx context.Context, embedder ai.Embedder, records []model.ChunkRecord) (*FlatIndex, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBuild
	}
	texts := make([]string, len(records))
	for i := range records {
		if records[i].ID != i {
			return nil, fmt.Errorf("record at position %d has id %d", i, records[i].ID)
		}
		texts[i] = records[i].Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed records failed: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("%w: got %d vectors for %d records", ai.ErrEmbeddingService, len(vectors), len(records))
	}

	idx := NewFlatIndex(len(vectors[0]))
	for _, v := range vectors {
		Normalize(v)
	}
	if err := idx.Add(vectors...); err != nil {
		return nil, fmt.Errorf("add vectors failed: %w", err)
	}
	return idx, nil
}
