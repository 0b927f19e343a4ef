package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"spacebio-rag/internal/pkg/pdfextract"
	"spacebio-rag/internal/platform/logger"
)

type Page = pdfextract.Page

// Document is one source file split into pages.
type Document struct {
	Path  string
	Pages []Page
}

// Source yields the documents of one build.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
}

// PDFDirSource reads every *.pdf file directly under a directory.
type PDFDirSource struct {
	dir         string
	concurrency int
	log         *logger.Logger
}

func NewPDFDirSource(dir string, concurrency int, log *logger.Logger) *PDFDirSource {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PDFDirSource{dir: dir, concurrency: concurrency, log: log}
}

// Documents extracts the PDFs in name order. Files that cannot be parsed are
// logged and left out.
func (s *PDFDirSource) Documents(ctx context.Context) ([]Document, error) {
	paths, err := s.list()
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages, err := extractFile(path)
			if err != nil {
				s.log.Warn("skipping unreadable pdf", "path", path, "error", err)
				return nil
			}
			docs[i] = &Document{Path: path, Pages: pages}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *PDFDirSource) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read pdf dir failed: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func extractFile(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pdfextract.ExtractPages(f)
}
