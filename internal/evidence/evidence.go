package evidence

import (
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/retrieval"
)

const (
	// SnippetRunes bounds the text handed to the generator per context item.
	SnippetRunes = 800
	// SummaryRunes bounds the text shown to users in result lists.
	SummaryRunes = 400
)

// Snippet is one generation context item. Its position in the assembled
// list is its citation number minus one.
type Snippet struct {
	Title   string  `json:"title"`
	Year    *string `json:"year"`
	Page    int     `json:"page"`
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
}

// Assemble converts rows to snippets, keeping order.
func Assemble(rows []retrieval.Row) []Snippet {
	out := make([]Snippet, 0, len(rows))
	for _, row := range rows {
		r := row.Record
		out = append(out, Snippet{
			Title:   r.DocTitle,
			Year:    r.Year,
			Page:    r.PageStart,
			Path:    r.DocPath,
			Snippet: truncate(r.Text, SnippetRunes),
		})
	}
	return out
}

// Source is the human-facing form of a row.
type Source struct {
	Title    string   `json:"title"`
	Year     *string  `json:"year"`
	Page     int      `json:"page"`
	Path     string   `json:"path"`
	Snippet  string   `json:"snippet,omitempty"`
	Organism *string  `json:"organism"`
	Stressor *string  `json:"stressor"`
	Platform *string  `json:"platform"`
	Score    *float32 `json:"score,omitempty"`
}

// Summarize converts rows to sources with a short snippet and the score.
func Summarize(rows []retrieval.Row) []Source {
	out := make([]Source, 0, len(rows))
	for _, row := range rows {
		src := SummarizeRecord(row.Record)
		score := row.Score
		src.Score = &score
		out = append(out, src)
	}
	return out
}

// SummarizeRecord renders one record without a score.
func SummarizeRecord(r *model.ChunkRecord) Source {
	text := truncate(r.Text, SummaryRunes)
	if len(text) < len(r.Text) {
		text += "..."
	}
	return Source{
		Title:    r.DocTitle,
		Year:     r.Year,
		Page:     r.PageStart,
		Path:     r.DocPath,
		Snippet:  text,
		Organism: r.Organism,
		Stressor: r.Stressor,
		Platform: r.Platform,
	}
}

// Cite drops the snippet, for answer source lists.
func Cite(sources []Source) []Source {
	out := make([]Source, len(sources))
	for i, s := range sources {
		s.Snippet = ""
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
