package index

import (
	"fmt"
	"sync/atomic"
	"time"

	"spacebio-rag/internal/model"
)

// Snapshot is one loaded build: metadata plus an optional index. It is never
// modified after construction; a reload produces a new Snapshot.
type Snapshot struct {
	BuildID  string
	LoadedAt time.Time
	Skipped  int

	index   *FlatIndex
	records []*model.ChunkRecord
	rows    []*model.ChunkRecord
}

// NewSnapshot places each record at its ordinal. The ordinal space is the
// number of metadata lines, skipped ones included, and must equal the vector
// count when idx is set. Records whose id falls outside that space or repeats
// an earlier id are dropped and counted as skipped.
func NewSnapshot(buildID string, idx *FlatIndex, records []*model.ChunkRecord, skipped int) (*Snapshot, error) {
	return newSnapshot(buildID, idx, records, skipped, nil)
}

func newSnapshot(buildID string, idx *FlatIndex, records []*model.ChunkRecord, skipped int, onSkip func(id int, err error)) (*Snapshot, error) {
	size := len(records) + skipped
	if idx != nil && idx.Len() != size {
		return nil, fmt.Errorf("%w: index has %d vectors, metadata has %d lines", ErrPartialBuild, idx.Len(), size)
	}

	rows := make([]*model.ChunkRecord, size)
	kept := make([]*model.ChunkRecord, 0, len(records))
	drop := func(id int, err error) {
		skipped++
		if onSkip != nil {
			onSkip(id, err)
		}
	}
	for _, r := range records {
		switch {
		case r.ID < 0 || r.ID >= size:
			drop(r.ID, fmt.Errorf("%w: record id %d outside [0, %d)", ErrMalformedMetadataLine, r.ID, size))
		case rows[r.ID] != nil:
			drop(r.ID, fmt.Errorf("%w: duplicate record id %d", ErrMalformedMetadataLine, r.ID))
		default:
			rows[r.ID] = r
			kept = append(kept, r)
		}
	}
	return &Snapshot{
		BuildID:  buildID,
		LoadedAt: time.Now(),
		Skipped:  skipped,
		index:    idx,
		records:  kept,
		rows:     rows,
	}, nil
}

// Empty returns a snapshot with no metadata and no index.
func Empty() *Snapshot {
	return &Snapshot{LoadedAt: time.Now()}
}

// Index returns nil when the snapshot was loaded without vectors.
func (s *Snapshot) Index() *FlatIndex { return s.index }

func (s *Snapshot) HasIndex() bool { return s.index != nil }

// Records returns the metadata in file order. Callers must not modify it.
func (s *Snapshot) Records() []*model.ChunkRecord { return s.records }

// Record returns the record at ordinal, or nil when the ordinal is out of
// range or its metadata line was skipped.
func (s *Snapshot) Record(ordinal int) *model.ChunkRecord {
	if ordinal < 0 || ordinal >= len(s.rows) {
		return nil
	}
	return s.rows[ordinal]
}

func (s *Snapshot) Len() int { return len(s.records) }

func (s *Snapshot) Vectors() int {
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// Holder publishes the active snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder(initial *Snapshot) *Holder {
	if initial == nil {
		initial = Empty()
	}
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Load returns the active snapshot. A request should call it once and keep
// the result for its whole lifetime.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap installs next and returns the previous snapshot.
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}
