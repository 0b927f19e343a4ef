package app

import (
	"context"
	"errors"
	"testing"

	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
)

type memRuns struct {
	runs     []*model.IngestRun
	finished []*model.IngestRun
}

func (m *memRuns) Create(run *model.IngestRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRuns) Finish(run *model.IngestRun) error {
	m.finished = append(m.finished, run)
	return nil
}

func (m *memRuns) ListRecent(limit int) ([]model.IngestRun, error) {
	out := []model.IngestRun{}
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.runs[i])
	}
	return out, nil
}

type fakePublisher struct {
	reqs []model.RebuildRequest
	err  error
}

func (f *fakePublisher) PublishRebuild(_ context.Context, req model.RebuildRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

func TestIndexService_ReloadSwapsSnapshot(t *testing.T) {
	store := index.NewStore(t.TempDir(), nil)
	holder := index.NewHolder(index.Empty())
	svc := NewIndexService(store, holder, true, nil, nil, nil)

	idx := index.NewFlatIndex(2)
	if err := idx.Add([]float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	recs := []model.ChunkRecord{{ID: 0, DocPath: "a.pdf", DocTitle: "A", PageStart: 1, PageEnd: 1, Text: "t"}}
	if err := store.Publish("b1", idx, recs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if svc.Status().Ready {
		t.Fatalf("status should not be ready before reload")
	}

	snap, err := svc.Reload()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if holder.Load() != snap {
		t.Fatalf("holder was not swapped")
	}
	st := svc.Status()
	if st.BuildID != "b1" || st.Chunks != 1 || st.Vectors != 1 || !st.Ready {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestIndexService_RequestRebuild(t *testing.T) {
	runs, pub := &memRuns{}, &fakePublisher{}
	svc := NewIndexService(index.NewStore(t.TempDir(), nil), index.NewHolder(index.Empty()), true, runs, pub, nil)

	run, err := svc.RequestRebuild(context.Background(), "")
	if err != nil {
		t.Fatalf("request rebuild failed: %v", err)
	}
	if run.Status != model.IngestStatusQueued || run.Trigger != "api" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(pub.reqs) != 1 || pub.reqs[0].RunID != run.ID {
		t.Fatalf("unexpected published requests %+v", pub.reqs)
	}

	listed, err := svc.ListRuns(10)
	if err != nil || len(listed) != 1 || listed[0].ID != run.ID {
		t.Fatalf("unexpected runs %+v, err %v", listed, err)
	}
}

func TestIndexService_PublishFailureMarksRunFailed(t *testing.T) {
	runs, pub := &memRuns{}, &fakePublisher{err: errors.New("broker down")}
	svc := NewIndexService(index.NewStore(t.TempDir(), nil), index.NewHolder(index.Empty()), true, runs, pub, nil)

	if _, err := svc.RequestRebuild(context.Background(), "api"); err == nil {
		t.Fatalf("expected publish error")
	}
	if len(runs.finished) != 1 || runs.finished[0].Status != model.IngestStatusFailed {
		t.Fatalf("run should be finished as failed: %+v", runs.finished)
	}
}

func TestIndexService_IngestDisabled(t *testing.T) {
	svc := NewIndexService(index.NewStore(t.TempDir(), nil), index.NewHolder(index.Empty()), true, nil, nil, nil)
	if _, err := svc.RequestRebuild(context.Background(), "api"); !errors.Is(err, ErrIngestDisabled) {
		t.Fatalf("expected ingest disabled, got %v", err)
	}
	runs, err := svc.ListRuns(5)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected no runs, got %+v %v", runs, err)
	}
}
