package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch means a vector's length differs from the index's.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Hit is one search result: the vector ordinal and its inner-product score.
type Hit struct {
	Ordinal int
	Score   float32
}

// FlatIndex is an exact inner-product index over row-major float32 vectors.
// It is append-only while building and read-only once published.
type FlatIndex struct {
	dim  int
	data []float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (f *FlatIndex) Dim() int { return f.dim }

func (f *FlatIndex) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors; ordinals continue from Len().
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a view of the stored vector at ordinal.
func (f *FlatIndex) Vector(ordinal int) []float32 {
	return f.data[ordinal*f.dim : (ordinal+1)*f.dim]
}

// Search returns the k highest-scoring ordinals for query, best first. Equal
// scores keep ordinal order. k is clamped to Len().
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Ordinal: i, Score: dot(query, f.Vector(i))}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:k], nil
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
