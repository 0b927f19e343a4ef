package model

// ChunkRecord is one line of meta.jsonl. ID is the ordinal of the record's
// vector in the index and its position in the metadata sequence.
type ChunkRecord struct {
	ID        int     `json:"id"`
	DocPath   string  `json:"doc_path"`
	DocTitle  string  `json:"doc_title"`
	Year      *string `json:"year"`
	PageStart int     `json:"page_start"`
	PageEnd   int     `json:"page_end"`
	Organism  *string `json:"organism"`
	Stressor  *string `json:"stressor"`
	Platform  *string `json:"platform"`
	Text      string  `json:"text"`
}

// FacetValue returns the record's label for the named facet dimension.
func (r *ChunkRecord) FacetValue(dimension string) (string, bool) {
	var v *string
	switch dimension {
	case FacetOrganism:
		v = r.Organism
	case FacetStressor:
		v = r.Stressor
	case FacetPlatform:
		v = r.Platform
	}
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

const (
	FacetOrganism = "organism"
	FacetStressor = "stressor"
	FacetPlatform = "platform"
)

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
