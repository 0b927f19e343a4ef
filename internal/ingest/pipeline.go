package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/chunker"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/platform/logger"
)

var ErrNoContent = errors.New("no extractable content")

// RunRecorder persists the audit trail of builds. It is optional.
type RunRecorder interface {
	Create(run *model.IngestRun) error
	MarkRunning(id string, startedAt time.Time) error
	Finish(run *model.IngestRun) error
}

type Pipeline struct {
	source   Source
	chunker  *chunker.Chunker
	embedder ai.Embedder
	store    *index.Store
	runs     RunRecorder
	log      *logger.Logger
}

func NewPipeline(
	source Source,
	chunker *chunker.Chunker,
	embedder ai.Embedder,
	store *index.Store,
	runs RunRecorder,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		runs:     runs,
		log:      log,
	}
}

// Run performs one full rebuild and publishes it. runID refers to a queued
// run created by the caller; an empty runID starts a new one. The returned run
// reflects the final status even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, runID, trigger string) (*model.IngestRun, error) {
	now := time.Now()
	run := &model.IngestRun{ID: runID, Status: model.IngestStatusRunning, Trigger: trigger, StartedAt: now}
	if run.ID == "" {
		run.ID = uuid.NewString()
		p.record("create", func(r RunRecorder) error { return r.Create(run) })
	} else {
		p.record("mark running", func(r RunRecorder) error { return r.MarkRunning(run.ID, now) })
	}
	log := p.log.With("run_id", run.ID, "trigger", trigger)
	log.Info("ingest started")

	err := p.build(ctx, run)
	finished := time.Now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = model.IngestStatusFailed
		run.Error = err.Error()
		log.Error("ingest failed", "error", err)
	} else {
		run.Status = model.IngestStatusSucceeded
		log.Info("ingest finished",
			"build_id", run.BuildID,
			"documents", run.Documents,
			"chunks", run.Chunks,
			"elapsed", finished.Sub(now).String(),
		)
	}
	p.record("finish", func(r RunRecorder) error { return r.Finish(run) })
	return run, err
}

func (p *Pipeline) build(ctx context.Context, run *model.IngestRun) error {
	docs, err := p.source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("load documents failed: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents found", ErrNoContent)
	}

	records, used := BuildRecords(docs, p.chunker)
	run.Documents = used
	run.Chunks = len(records)
	if len(records) == 0 {
		return fmt.Errorf("%w: %d documents yielded no chunks", ErrNoContent, len(docs))
	}
	p.log.Info("embedding chunks", "run_id", run.ID, "documents", used, "chunks", len(records))

	idx, err := index.Build(ctx, p.embedder, records)
	if err != nil {
		return err
	}
	run.Vectors = idx.Len()

	buildID := NewBuildID(time.Now())
	if err := p.store.Publish(buildID, idx, records); err != nil {
		return fmt.Errorf("publish build failed: %w", err)
	}
	run.BuildID = buildID
	return nil
}

func (p *Pipeline) record(action string, fn func(RunRecorder) error) {
	if p.runs == nil {
		return
	}
	if err := fn(p.runs); err != nil {
		p.log.Warn("ingest run audit failed", "action", action, "error", err)
	}
}

// NewBuildID returns a sortable, unique build directory name.
func NewBuildID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}
