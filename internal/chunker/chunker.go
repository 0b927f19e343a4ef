package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultMaxTokens     = 900
	DefaultOverlapTokens = 200

	hardSplitWords = 300
	tailWords      = 120
	fallbackRunes  = 2000
)

// headingLine matches short capitalised lines such as "Methods" or "Results (2019)".
var headingLine = regexp.MustCompile(`^[A-Z][A-Za-z0-9 ()\-]{2,50}$`)

// Chunker splits page text into passages that never exceed maxTokens.
type Chunker struct {
	maxTokens     int
	overlapTokens int
	tokens        TokenCounter
}

func New(tokens TokenCounter, maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	return &Chunker{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		tokens:        tokens,
	}
}

// Chunk returns the ordered passages of one page. Every passage is within the
// token budget except the single fallback returned for text without content.
func (c *Chunker) Chunk(text string) []string {
	var chunks []string
	buf := ""
	for _, piece := range splitCandidates(text) {
		joined := piece
		if buf != "" {
			joined = buf + "\n" + piece
		}
		if c.tokens.Count(joined) <= c.maxTokens {
			buf = joined
			continue
		}
		if buf != "" {
			chunks = append(chunks, buf)
			buf = ""
		}
		if c.tokens.Count(piece) <= c.maxTokens {
			buf = piece
			continue
		}
		chunks = append(chunks, c.hardSplit(piece)...)
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}

	chunks = c.carryTail(chunks)
	if len(chunks) == 0 {
		return []string{prefixRunes(text, fallbackRunes)}
	}
	return chunks
}

// splitCandidates breaks text on blank lines and before heading-like lines.
func splitCandidates(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var pieces []string
	var cur []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(cur, "\n")); p != "" {
			pieces = append(pieces, p)
		}
		cur = cur[:0]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case headingLine.MatchString(trimmed):
			flush()
			cur = append(cur, trimmed)
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return pieces
}

// hardSplit cuts an oversize piece into overlapping word windows.
func (c *Chunker) hardSplit(piece string) []string {
	words := strings.Fields(piece)
	step := hardSplitWords - c.overlapTokens/3
	if step < 1 {
		step = 1
	}
	var out []string
	for start := 0; start < len(words); start += step {
		end := min(start+hardSplitWords, len(words))
		out = append(out, c.fit(words[start:end])...)
		if end == len(words) {
			break
		}
	}
	return out
}

// fit halves a window until each part is within budget.
func (c *Chunker) fit(words []string) []string {
	text := strings.Join(words, " ")
	if c.tokens.Count(text) <= c.maxTokens {
		return []string{text}
	}
	if len(words) == 1 {
		runes := []rune(text)
		if len(runes) < 2 {
			return []string{text}
		}
		mid := len(runes) / 2
		return append(c.fit([]string{string(runes[:mid])}), c.fit([]string{string(runes[mid:])})...)
	}
	mid := len(words) / 2
	return append(c.fit(words[:mid]), c.fit(words[mid:])...)
}

// carryTail prefixes each chunk with the last words of its predecessor when
// the result still fits the budget.
func (c *Chunker) carryTail(chunks []string) []string {
	if len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		merged := strings.TrimSpace(lastWords(chunks[i-1], tailWords) + "\n" + chunks[i])
		if c.tokens.Count(merged) <= c.maxTokens {
			out[i] = merged
		} else {
			out[i] = chunks[i]
		}
	}
	return out
}

func lastWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func prefixRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
