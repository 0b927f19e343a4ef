package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spacebio-rag/internal/chunker"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
)

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

type staticSource struct {
	docs []Document
	err  error
}

func (s staticSource) Documents(context.Context) ([]Document, error) { return s.docs, s.err }

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

type memRuns struct {
	created  []string
	running  []string
	finished []model.IngestRun
}

func (m *memRuns) Create(run *model.IngestRun) error {
	m.created = append(m.created, run.ID)
	return nil
}

func (m *memRuns) MarkRunning(id string, _ time.Time) error {
	m.running = append(m.running, id)
	return nil
}

func (m *memRuns) Finish(run *model.IngestRun) error {
	m.finished = append(m.finished, *run)
	return nil
}

func sampleDocs() []Document {
	return []Document{
		{
			Path: "data/pdfs/mice.pdf",
			Pages: []Page{
				{Number: 1, Text: "Short\nSkeletal unloading in mice aboard the ISS\nPublished 2017 in npj Microgravity\n\nMouse femurs lost density in microgravity."},
				{Number: 2, Text: "   \n"},
				{Number: 3, Text: "Rodent habitats on the International Space Station."},
			},
		},
		{
			Path:  "data/pdfs/blank.pdf",
			Pages: []Page{{Number: 1, Text: ""}},
		},
		{
			Path:  "data/pdfs/yeast.pdf",
			Pages: []Page{{Number: 1, Text: "tiny\nyeast under radiation"}},
		},
	}
}

func TestGuessTitleYear(t *testing.T) {
	docs := sampleDocs()
	title, year := GuessTitleYear(docs[0].Path, docs[0].Pages)
	if title != "Skeletal unloading in mice aboard the ISS" {
		t.Fatalf("unexpected title %q", title)
	}
	if year == nil || *year != "2017" {
		t.Fatalf("expected year 2017, got %v", year)
	}

	title, year = GuessTitleYear(docs[2].Path, docs[2].Pages)
	if title != "yeast under radiation" || year != nil {
		t.Fatalf("unexpected guess %q %v", title, year)
	}

	title, _ = GuessTitleYear("data/pdfs/empty.pdf", nil)
	if title != "empty.pdf" {
		t.Fatalf("expected file name fallback, got %q", title)
	}
}

func TestBuildRecords(t *testing.T) {
	c := chunker.New(wordCounter{}, 900, 200)
	records, used := BuildRecords(sampleDocs(), c)

	if used != 2 {
		t.Fatalf("expected 2 documents with text, got %d", used)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.ID != i {
			t.Fatalf("record %d has id %d", i, r.ID)
		}
		if r.PageStart != r.PageEnd {
			t.Fatalf("record %d spans pages", i)
		}
	}
	if records[1].PageStart != 3 {
		t.Fatalf("expected blank page 2 skipped, got page %d", records[1].PageStart)
	}
	first := records[0]
	if model.Deref(first.Organism) != "rodent" || model.Deref(first.Stressor) != "microgravity" || model.Deref(first.Platform) != "ISS" {
		t.Fatalf("unexpected facets %q %q %q", model.Deref(first.Organism), model.Deref(first.Stressor), model.Deref(first.Platform))
	}
	if model.Deref(records[2].Organism) != "yeast" || model.Deref(records[2].Stressor) != "radiation" || records[2].Platform != nil {
		t.Fatalf("unexpected facets on yeast doc")
	}
}

func TestPipeline_RunPublishesAndRecords(t *testing.T) {
	dir := t.TempDir()
	store := index.NewStore(dir, nil)
	runs := &memRuns{}
	p := NewPipeline(staticSource{docs: sampleDocs()}, chunker.New(wordCounter{}, 900, 200), constEmbedder{}, store, runs, nil)

	run, err := p.Run(context.Background(), "", "cli")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if run.Status != model.IngestStatusSucceeded || run.Chunks != 3 || run.Vectors != 3 || run.Documents != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(runs.created) != 1 || len(runs.finished) != 1 || runs.finished[0].BuildID != run.BuildID {
		t.Fatalf("unexpected audit trail %+v", runs)
	}

	current, err := store.Current()
	if err != nil || current != run.BuildID {
		t.Fatalf("expected CURRENT=%s, got %q (%v)", run.BuildID, current, err)
	}
	snap, err := store.Load(true)
	if err != nil || snap.Len() != 3 || snap.Vectors() != 3 {
		t.Fatalf("unexpected snapshot after publish: %v", err)
	}
}

func TestPipeline_RunQueuedFailsWithoutContent(t *testing.T) {
	runs := &memRuns{}
	store := index.NewStore(t.TempDir(), nil)
	docs := []Document{{Path: "a.pdf", Pages: []Page{{Number: 1, Text: " "}}}}
	p := NewPipeline(staticSource{docs: docs}, chunker.New(wordCounter{}, 900, 200), constEmbedder{}, store, runs, nil)

	run, err := p.Run(context.Background(), "queued-1", "api")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if run.Status != model.IngestStatusFailed || run.Error == "" || run.FinishedAt == nil {
		t.Fatalf("unexpected failed run %+v", run)
	}
	if len(runs.created) != 0 || len(runs.running) != 1 || runs.running[0] != "queued-1" {
		t.Fatalf("expected queued run to be marked running, got %+v", runs)
	}
	if id, _ := store.Current(); id != "" {
		t.Fatalf("failed run must not publish, got %q", id)
	}
}

func TestPDFDirSource_SkipsUnreadableAndNonPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.PDF"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := NewPDFDirSource(dir, 2, nil)
	paths, err := src.list()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "broken.PDF" {
		t.Fatalf("unexpected listing %v", paths)
	}
	docs, err := src.Documents(context.Background())
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected unreadable pdf to be skipped, got %d docs", len(docs))
	}

	if _, err := NewPDFDirSource(filepath.Join(dir, "missing"), 1, nil).Documents(context.Background()); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

// malformedPDF has a valid xref table but a stray ")" inside the Pages
// dictionary, which the pdf parser panics on.
func malformedPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 ) >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestPDFDirSource_SkipsMalformedPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "corrupt.pdf"), malformedPDF(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	docs, err := NewPDFDirSource(dir, 2, nil).Documents(context.Background())
	if err != nil {
		t.Fatalf("a malformed pdf must not fail the build: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected malformed pdf to be skipped, got %d docs", len(docs))
	}
}
