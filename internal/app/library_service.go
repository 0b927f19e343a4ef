package app

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"spacebio-rag/internal/evidence"
	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/retrieval"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// LibraryService browses the loaded metadata directly, without the index.
type LibraryService struct {
	holder *index.Holder
}

func NewLibraryService(holder *index.Holder) *LibraryService {
	return &LibraryService{holder: holder}
}

type LibraryQuery struct {
	Text     string
	Filters  facet.Facets
	Page     int
	PageSize int
	// Sort is "year", "path" or empty for metadata order.
	Sort  string
	Order string
}

type LibraryPage struct {
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Results  []evidence.Source `json:"results"`
}

// Library filters, sorts and pages the metadata, then keeps one row per path
// within the page. Total counts rows before paging.
func (s *LibraryService) Library(q LibraryQuery) (*LibraryPage, error) {
	if err := normalizeLibraryQuery(&q); err != nil {
		return nil, err
	}

	snap := s.holder.Load()
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	rows := make([]*model.ChunkRecord, 0, snap.Len())
	for _, r := range snap.Records() {
		if !retrieval.Matches(r, q.Filters) {
			continue
		}
		if needle != "" && !containsFold(r, needle) {
			continue
		}
		rows = append(rows, r)
	}

	desc := q.Order == "desc"
	switch q.Sort {
	case "year":
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return yearKey(rows[j].Year) < yearKey(rows[i].Year)
			}
			return yearKey(rows[i].Year) < yearKey(rows[j].Year)
		})
	case "path":
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return rows[j].DocPath < rows[i].DocPath
			}
			return rows[i].DocPath < rows[j].DocPath
		})
	}

	total := len(rows)
	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	results := make([]evidence.Source, 0, end-start)
	seen := make(map[string]struct{})
	for _, r := range rows[start:end] {
		if _, ok := seen[r.DocPath]; ok {
			continue
		}
		seen[r.DocPath] = struct{}{}
		results = append(results, evidence.SummarizeRecord(r))
	}

	return &LibraryPage{Total: total, Page: q.Page, PageSize: q.PageSize, Results: results}, nil
}

type Stats struct {
	Organisms []facet.Count `json:"organisms"`
	Stressors []facet.Count `json:"stressors"`
	Platforms []facet.Count `json:"platforms"`
	Chunks    int           `json:"chunks"`
}

// Stats counts facet values over the loaded metadata, most common first.
func (s *LibraryService) Stats() *Stats {
	records := s.holder.Load().Records()
	return &Stats{
		Organisms: nonNilCounts(facet.Counts(records, model.FacetOrganism)),
		Stressors: nonNilCounts(facet.Counts(records, model.FacetStressor)),
		Platforms: nonNilCounts(facet.Counts(records, model.FacetPlatform)),
		Chunks:    len(records),
	}
}

func normalizeLibraryQuery(q *LibraryQuery) error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidInput)
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidInput, maxPageSize)
	}
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.Order == "" {
		q.Order = "desc"
	}
	if q.Order != "asc" && q.Order != "desc" {
		return fmt.Errorf("%w: order must be asc or desc", ErrInvalidInput)
	}
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	if q.Sort != "year" && q.Sort != "path" {
		q.Sort = ""
	}
	return nil
}

func containsFold(r *model.ChunkRecord, needle string) bool {
	return strings.Contains(strings.ToLower(r.DocTitle), needle) ||
		strings.Contains(strings.ToLower(r.Text), needle) ||
		strings.Contains(strings.ToLower(r.DocPath), needle)
}

// yearKey sorts unknown or unparsable years before every real year.
func yearKey(year *string) int {
	y, err := strconv.Atoi(model.Deref(year))
	if err != nil {
		return math.MinInt32
	}
	return y
}

func nonNilCounts(c []facet.Count) []facet.Count {
	if c == nil {
		return []facet.Count{}
	}
	return c
}

func recordsOf(rows []retrieval.Row) []*model.ChunkRecord {
	out := make([]*model.ChunkRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record)
	}
	return out
}
