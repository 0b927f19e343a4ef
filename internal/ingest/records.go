package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"spacebio-rag/internal/chunker"
	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/model"
)

const (
	titleScanLines = 10
	minTitleLen    = 10
	firstYear      = 1980
	lastYear       = 2035
)

// GuessTitleYear looks at the first lines of page one: the title is the first
// line longer than ten characters, the year the earliest candidate year found
// on the first line that contains one.
func GuessTitleYear(path string, pages []Page) (string, *string) {
	var lines []string
	if len(pages) > 0 {
		lines = strings.Split(pages[0].Text, "\n")
		if len(lines) > titleScanLines {
			lines = lines[:titleScanLines]
		}
	}

	title := filepath.Base(path)
	for _, l := range lines {
		if t := strings.TrimSpace(l); len([]rune(t)) > minTitleLen {
			title = t
			break
		}
	}

	for _, l := range lines {
		for y := firstYear; y <= lastYear; y++ {
			ys := strconv.Itoa(y)
			if strings.Contains(l, ys) {
				return title, &ys
			}
		}
	}
	return title, nil
}

// BuildRecords turns documents into chunk records with dense ids. Facets are
// tagged once per document over its full text; blank pages are skipped.
func BuildRecords(docs []Document, c *chunker.Chunker) ([]model.ChunkRecord, int) {
	var records []model.ChunkRecord
	used := 0
	for _, doc := range docs {
		var full strings.Builder
		for _, p := range doc.Pages {
			full.WriteString(p.Text)
			full.WriteByte('\n')
		}
		if strings.TrimSpace(full.String()) == "" {
			continue
		}
		used++

		title, year := GuessTitleYear(doc.Path, doc.Pages)
		organism, _ := facet.Tag(full.String(), facet.Organisms)
		stressor, _ := facet.Tag(full.String(), facet.Stressors)
		platform, _ := facet.Tag(full.String(), facet.Platforms)

		for _, p := range doc.Pages {
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			for _, text := range c.Chunk(p.Text) {
				records = append(records, model.ChunkRecord{
					ID:        len(records),
					DocPath:   doc.Path,
					DocTitle:  title,
					Year:      year,
					PageStart: p.Number,
					PageEnd:   p.Number,
					Organism:  model.StringPtr(organism),
					Stressor:  model.StringPtr(stressor),
					Platform:  model.StringPtr(platform),
					Text:      text,
				})
			}
		}
	}
	return records, used
}
