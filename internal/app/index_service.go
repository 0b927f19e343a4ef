package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/platform/logger"
)

var ErrIngestDisabled = errors.New("ingest queue is disabled")

// RunStore is the ingest-run audit table.
type RunStore interface {
	Create(run *model.IngestRun) error
	Finish(run *model.IngestRun) error
	ListRecent(limit int) ([]model.IngestRun, error)
}

// RebuildPublisher hands a rebuild request to the worker queue.
type RebuildPublisher interface {
	PublishRebuild(ctx context.Context, req model.RebuildRequest) error
}

// IndexService owns the served snapshot: reloads it from disk and queues
// rebuilds.
type IndexService struct {
	store     *index.Store
	holder    *index.Holder
	withIndex bool
	runs      RunStore
	publisher RebuildPublisher
	log       *logger.Logger
}

func NewIndexService(
	store *index.Store,
	holder *index.Holder,
	withIndex bool,
	runs RunStore,
	publisher RebuildPublisher,
	log *logger.Logger,
) *IndexService {
	if log == nil {
		log = logger.Nop()
	}
	return &IndexService{
		store:     store,
		holder:    holder,
		withIndex: withIndex,
		runs:      runs,
		publisher: publisher,
		log:       log,
	}
}

// Reload reads the current build and swaps it in. On error the served
// snapshot is left untouched.
func (s *IndexService) Reload() (*index.Snapshot, error) {
	snap, err := s.store.Load(s.withIndex)
	if err != nil {
		return nil, fmt.Errorf("reload index failed: %w", err)
	}
	s.holder.Swap(snap)
	return snap, nil
}

// RequestRebuild records a queued run and publishes it for the worker.
func (s *IndexService) RequestRebuild(ctx context.Context, trigger string) (*model.IngestRun, error) {
	if s.publisher == nil {
		return nil, ErrIngestDisabled
	}
	if trigger == "" {
		trigger = "api"
	}

	now := time.Now()
	run := &model.IngestRun{
		ID:        uuid.NewString(),
		Status:    model.IngestStatusQueued,
		Trigger:   trigger,
		StartedAt: now,
	}
	if s.runs != nil {
		if err := s.runs.Create(run); err != nil {
			return nil, fmt.Errorf("create ingest run failed: %w", err)
		}
	}

	err := s.publisher.PublishRebuild(ctx, model.RebuildRequest{
		RunID:       run.ID,
		Trigger:     trigger,
		RequestedAt: now,
	})
	if err != nil {
		if s.runs != nil {
			finished := time.Now()
			run.Status = model.IngestStatusFailed
			run.Error = err.Error()
			run.FinishedAt = &finished
			if ferr := s.runs.Finish(run); ferr != nil {
				s.log.Warn("ingest run audit failed", "run_id", run.ID, "error", ferr)
			}
		}
		return nil, err
	}
	s.log.Info("rebuild queued", "run_id", run.ID, "trigger", trigger)
	return run, nil
}

// ListRuns returns the most recent ingest runs, newest first.
func (s *IndexService) ListRuns(limit int) ([]model.IngestRun, error) {
	if s.runs == nil {
		return []model.IngestRun{}, nil
	}
	runs, err := s.runs.ListRecent(limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs failed: %w", err)
	}
	return runs, nil
}

type IndexStatus struct {
	BuildID  string    `json:"build_id"`
	LoadedAt time.Time `json:"loaded_at"`
	Chunks   int       `json:"chunks"`
	Vectors  int       `json:"vectors"`
	Skipped  int       `json:"skipped"`
	Ready    bool      `json:"ready"`
}

func (s *IndexService) Status() IndexStatus {
	snap := s.holder.Load()
	return IndexStatus{
		BuildID:  snap.BuildID,
		LoadedAt: snap.LoadedAt,
		Chunks:   snap.Len(),
		Vectors:  snap.Vectors(),
		Skipped:  snap.Skipped,
		Ready:    snap.HasIndex(),
	}
}
