package facet

import (
	"sort"
	"strings"

	"spacebio-rag/internal/model"
)

// Label is one canonical facet value and the surface terms that signal it.
type Label struct {
	Name  string
	Terms []string
}

// Vocabulary is an ordered list of labels; earlier labels win ties.
type Vocabulary []Label

var Organisms = Vocabulary{
	{Name: "rodent", Terms: []string{"mouse", "mice", "rat", "rats", "murine", "rodent"}},
	{Name: "drosophila", Terms: []string{"drosophila", "fruit fly", "fruit flies"}},
	{Name: "arabidopsis", Terms: []string{"arabidopsis", "a. thaliana", "thaliana"}},
	{Name: "human", Terms: []string{"human", "astronaut", "crew member", "crew"}},
	{Name: "yeast", Terms: []string{"yeast", "s. cerevisiae", "cerevisiae"}},
	{Name: "zebrafish", Terms: []string{"zebrafish", "danio rerio"}},
}

var Stressors = Vocabulary{
	{Name: "microgravity", Terms: []string{"microgravity", "spaceflight", "space flight", "0 g", "μg", "weightlessness"}},
	{Name: "radiation", Terms: []string{"radiation", "cosmic ray", "galactic cosmic", "gcr", "ionizing"}},
	{Name: "launch/landing", Terms: []string{"launch", "landing", "re-entry", "reentry", "ascent", "descent"}},
	{Name: "isolation", Terms: []string{"isolation", "confinement"}},
	{Name: "partial-g", Terms: []string{"lunar gravity", "martian gravity", "1/6 g", "3/8 g", "partial gravity"}},
}

var Platforms = Vocabulary{
	{Name: "ISS", Terms: []string{"iss", "international space station"}},
	{Name: "Shuttle", Terms: []string{"space shuttle", "sts-"}},
	{Name: "Ground Analog", Terms: []string{"hindlimb unloading", "bed rest", "clinostat", "random positioning machine", "rpm"}},
}

// Tag returns the label with the most distinct term hits in text. Matching is
// case-insensitive substring containment, so "rats" hits both "rat" and "rats".
func Tag(text string, vocab Vocabulary) (string, bool) {
	low := strings.ToLower(text)
	best, bestScore := "", 0
	for _, label := range vocab {
		score := 0
		for _, term := range label.Terms {
			if strings.Contains(low, strings.ToLower(term)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = label.Name, score
		}
	}
	return best, bestScore > 0
}

// Facets holds one optional label per dimension.
type Facets struct {
	Organism *string `json:"organism"`
	Stressor *string `json:"stressor"`
	Platform *string `json:"platform"`
}

// Get returns the label for a dimension name.
func (f Facets) Get(dimension string) (string, bool) {
	var v *string
	switch dimension {
	case model.FacetOrganism:
		v = f.Organism
	case model.FacetStressor:
		v = f.Stressor
	case model.FacetPlatform:
		v = f.Platform
	}
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

// Empty reports whether no dimension is set.
func (f Facets) Empty() bool {
	return model.Deref(f.Organism) == "" && model.Deref(f.Stressor) == "" && model.Deref(f.Platform) == ""
}

// Guess tags a question against all three default vocabularies.
func Guess(question string) Facets {
	return Facets{
		Organism: tagPtr(question, Organisms),
		Stressor: tagPtr(question, Stressors),
		Platform: tagPtr(question, Platforms),
	}
}

func tagPtr(text string, vocab Vocabulary) *string {
	if label, ok := Tag(text, vocab); ok {
		return &label
	}
	return nil
}

// Majority returns the most common non-empty value; ties go to the value seen first.
func Majority(values []*string) *string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == nil || *v == "" {
			continue
		}
		if counts[*v] == 0 {
			order = append(order, *v)
		}
		counts[*v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}

// Infer returns the majority facet of each dimension across records.
func Infer(records []*model.ChunkRecord) Facets {
	var org, str, plat []*string
	for _, r := range records {
		org = append(org, r.Organism)
		str = append(str, r.Stressor)
		plat = append(plat, r.Platform)
	}
	return Facets{
		Organism: Majority(org),
		Stressor: Majority(str),
		Platform: Majority(plat),
	}
}

// Count is one facet value and its frequency.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Counts tallies the non-empty values of one dimension, most common first.
// Equal counts keep first-seen order.
func Counts(records []*model.ChunkRecord, dimension string) []Count {
	idx := make(map[string]int)
	var out []Count
	for _, r := range records {
		v, ok := r.FacetValue(dimension)
		if !ok {
			continue
		}
		if i, seen := idx[v]; seen {
			out[i].Count++
			continue
		}
		idx[v] = len(out)
		out = append(out, Count{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
