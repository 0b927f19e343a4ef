package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
)

const (
	DefaultTopK                = 8
	DefaultMinCandidates       = 30
	DefaultCandidateMultiplier = 4
)

var (
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrInvalidQuery     = errors.New("invalid retrieval query")
)

// Query describes one retrieval. Paths, when non-empty, replaces vector
// search with a metadata scan restricted to those documents.
type Query struct {
	Question string
	K        int
	Filters  facet.Facets
	Paths    []string
	Rerank   bool
}

// Row is one selected chunk. Score is zero for allowlist rows.
type Row struct {
	Record        *model.ChunkRecord
	Score         float32
	AdjustedScore float32
}

// Scorer returns the rerank score of a candidate given the facets guessed from
// the question.
type Scorer func(rec *model.ChunkRecord, score float32, guess facet.Facets) float32

// FacetBonus adds bonus for every dimension where the guessed label equals
// the record's label.
func FacetBonus(bonus float32) Scorer {
	return func(rec *model.ChunkRecord, score float32, guess facet.Facets) float32 {
		for _, dim := range []string{model.FacetOrganism, model.FacetStressor, model.FacetPlatform} {
			want, ok := guess.Get(dim)
			if !ok {
				continue
			}
			if got, ok := rec.FacetValue(dim); ok && got == want {
				score += bonus
			}
		}
		return score
	}
}

type Options struct {
	MinCandidates       int
	CandidateMultiplier int
	DefaultTopK         int
	// Scorer is used for queries with Rerank set; nil disables reranking.
	Scorer Scorer
}

type Retriever struct {
	holder   *index.Holder
	embedder ai.Embedder
	opts     Options
}

func NewRetriever(holder *index.Holder, embedder ai.Embedder, opts Options) *Retriever {
	if opts.MinCandidates <= 0 {
		opts.MinCandidates = DefaultMinCandidates
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	return &Retriever{holder: holder, embedder: embedder, opts: opts}
}

// Retrieve selects at most K rows, no two sharing (doc_path, page_start).
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]Row, error) {
	return r.RetrieveFrom(ctx, r.holder.Load(), q)
}

// RetrieveFrom runs q against a specific snapshot.
func (r *Retriever) RetrieveFrom(ctx context.Context, snap *index.Snapshot, q Query) ([]Row, error) {
	k := q.K
	if k <= 0 {
		k = r.opts.DefaultTopK
	}

	var rows []Row
	if len(q.Paths) > 0 {
		rows = allowlisted(snap, q.Paths)
	} else {
		var err error
		rows, err = r.search(ctx, snap, q, k)
		if err != nil {
			return nil, err
		}
	}

	rows = filterRows(rows, q.Filters)
	rows = dedupeRows(rows)
	if len(rows) > k {
		rows = rows[:k]
	}
	return rows, nil
}

func (r *Retriever) search(ctx context.Context, snap *index.Snapshot, q Query, k int) ([]Row, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidQuery)
	}
	idx := snap.Index()
	if idx == nil {
		return nil, ErrIndexUnavailable
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 question", ai.ErrEmbeddingService, len(vectors))
	}
	qv := append([]float32(nil), vectors[0]...)
	index.Normalize(qv)

	hits, err := idx.Search(qv, max(r.opts.MinCandidates, r.opts.CandidateMultiplier*k))
	if err != nil {
		return nil, fmt.Errorf("embedding dimension does not match index: %w", err)
	}

	rows := make([]Row, 0, len(hits))
	for _, h := range hits {
		rec := snap.Record(h.Ordinal)
		if rec == nil {
			continue
		}
		rows = append(rows, Row{Record: rec, Score: h.Score, AdjustedScore: h.Score})
	}

	if q.Rerank && r.opts.Scorer != nil {
		guess := facet.Guess(question)
		for i := range rows {
			rows[i].AdjustedScore = r.opts.Scorer(rows[i].Record, rows[i].Score, guess)
		}
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].AdjustedScore > rows[b].AdjustedScore })
	}
	return rows, nil
}

func allowlisted(snap *index.Snapshot, paths []string) []Row {
	allowed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allowed[p] = struct{}{}
	}
	var rows []Row
	for _, rec := range snap.Records() {
		if _, ok := allowed[rec.DocPath]; ok {
			rows = append(rows, Row{Record: rec})
		}
	}
	return rows
}

// filterRows keeps rows whose facet equals every non-empty filter value.
func filterRows(rows []Row, filters facet.Facets) []Row {
	if filters.Empty() {
		return rows
	}
	out := rows[:0:0]
	for _, row := range rows {
		if Matches(row.Record, filters) {
			out = append(out, row)
		}
	}
	return out
}

// Matches reports whether rec carries every non-empty filter value.
func Matches(rec *model.ChunkRecord, filters facet.Facets) bool {
	for _, dim := range []string{model.FacetOrganism, model.FacetStressor, model.FacetPlatform} {
		want, ok := filters.Get(dim)
		if !ok {
			continue
		}
		if got, ok := rec.FacetValue(dim); !ok || got != want {
			return false
		}
	}
	return true
}

type pageKey struct {
	path string
	page int
}

// dedupeRows keeps the first row of each (doc_path, page_start) pair.
func dedupeRows(rows []Row) []Row {
	seen := make(map[pageKey]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		key := pageKey{path: row.Record.DocPath, page: row.Record.PageStart}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}
