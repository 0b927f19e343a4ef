package app

import (
	"errors"
	"testing"

	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
)

func libraryHolder(t *testing.T) *index.Holder {
	t.Helper()
	recs := []*model.ChunkRecord{
		{ID: 0, DocPath: "b.pdf", DocTitle: "Bone loss", Year: model.StringPtr("2015"), PageStart: 1, Organism: model.StringPtr("rodent"), Text: "femur"},
		{ID: 1, DocPath: "b.pdf", DocTitle: "Bone loss", Year: model.StringPtr("2015"), PageStart: 2, Organism: model.StringPtr("rodent"), Text: "tibia"},
		{ID: 2, DocPath: "a.pdf", DocTitle: "Plant roots", Year: model.StringPtr("2021"), PageStart: 1, Organism: model.StringPtr("arabidopsis"), Stressor: model.StringPtr("microgravity"), Text: "roots"},
		{ID: 3, DocPath: "c.pdf", DocTitle: "Crew sleep", PageStart: 1, Organism: model.StringPtr("human"), Stressor: model.StringPtr("isolation"), Text: "sleep"},
		{ID: 4, DocPath: "d.pdf", DocTitle: "Mouse muscle", Year: model.StringPtr("2010"), PageStart: 1, Organism: model.StringPtr("rodent"), Stressor: model.StringPtr("microgravity"), Text: "muscle"},
	}
	snap, err := index.NewSnapshot("lib", nil, recs, 0)
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}
	return index.NewHolder(snap)
}

func TestLibrary_FiltersAndDedupesPerPath(t *testing.T) {
	svc := NewLibraryService(libraryHolder(t))

	page, err := svc.Library(LibraryQuery{Filters: facet.Facets{Organism: model.StringPtr("rodent")}})
	if err != nil {
		t.Fatalf("library failed: %v", err)
	}
	if page.Total != 3 || page.Page != 1 || page.PageSize != defaultPageSize {
		t.Fatalf("unexpected page header %+v", page)
	}
	if len(page.Results) != 2 || page.Results[0].Path != "b.pdf" || page.Results[1].Path != "d.pdf" {
		t.Fatalf("unexpected results %+v", page.Results)
	}
}

func TestLibrary_TextMatchIsCaseInsensitive(t *testing.T) {
	svc := NewLibraryService(libraryHolder(t))

	page, err := svc.Library(LibraryQuery{Text: "ROOTS"})
	if err != nil {
		t.Fatalf("library failed: %v", err)
	}
	if page.Total != 1 || page.Results[0].Path != "a.pdf" {
		t.Fatalf("unexpected results %+v", page.Results)
	}
}

func TestLibrary_SortByYear(t *testing.T) {
	svc := NewLibraryService(libraryHolder(t))

	page, err := svc.Library(LibraryQuery{Sort: "year", Order: "desc"})
	if err != nil {
		t.Fatalf("library failed: %v", err)
	}
	got := []string{}
	for _, r := range page.Results {
		got = append(got, r.Path)
	}
	want := []string{"a.pdf", "b.pdf", "d.pdf", "c.pdf"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	page, err = svc.Library(LibraryQuery{Sort: "path", Order: "asc", PageSize: 1, Page: 2})
	if err != nil {
		t.Fatalf("library failed: %v", err)
	}
	if page.Total != 5 || len(page.Results) != 1 || page.Results[0].Path != "b.pdf" {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestLibrary_Validation(t *testing.T) {
	svc := NewLibraryService(libraryHolder(t))
	for _, q := range []LibraryQuery{
		{Page: -1},
		{PageSize: 201},
		{Order: "sideways"},
	} {
		if _, err := svc.Library(q); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", q, err)
		}
	}

	page, err := svc.Library(LibraryQuery{Page: 9})
	if err != nil {
		t.Fatalf("a page past the end is not an error: %v", err)
	}
	if len(page.Results) != 0 || page.Total != 5 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestStats_CountsMostCommonFirst(t *testing.T) {
	stats := NewLibraryService(libraryHolder(t)).Stats()
	if stats.Chunks != 5 {
		t.Fatalf("expected 5 chunks, got %d", stats.Chunks)
	}
	if stats.Organisms[0].Value != "rodent" || stats.Organisms[0].Count != 3 {
		t.Fatalf("unexpected organisms %+v", stats.Organisms)
	}
	if stats.Stressors[0].Value != "microgravity" || stats.Stressors[0].Count != 2 {
		t.Fatalf("unexpected stressors %+v", stats.Stressors)
	}
	if stats.Platforms == nil || len(stats.Platforms) != 0 {
		t.Fatalf("expected empty platform list, got %+v", stats.Platforms)
	}
}
