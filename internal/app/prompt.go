package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/evidence"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/retrieval"
)

const answerSystemPrompt = "You are a PhD-level Space Biology researcher supporting PIs and program directors. " +
	"Use ONLY the provided context chunks. If the answer is not present in the context, say so plainly. " +
	"Be precise, neutral, and concise. Avoid speculation unless clearly qualified.\n\n" +
	"Audience: domain researchers and decision makers. Prefer clarity over flair. " +
	"Expand acronyms on first use (e.g., International Space Station (ISS)). " +
	"Define niche terms briefly when they first appear.\n\n" +
	"Output format (plain Markdown; no bold, no italics, no tables):\n" +
	"Explanation\n" +
	"- A short narrative (2-6 sentences) that walks through what the sources actually say.\n" +
	"- Anchor important claims with bracket citations immediately after the claim, e.g., [1], [2].\n" +
	"- If quantitative values exist, include them succinctly.\n" +
	"Key findings\n" +
	"- Bullet points with one concrete claim per bullet; each bullet has bracket citations.\n" +
	"Context coverage\n" +
	"- Map ideas to the source numbers to show evidence traceability.\n" +
	"Summary\n" +
	"- 1-3 sentences that directly answer the question at a high level.\n" +
	"Notes\n" +
	"- Limitations, disagreements, missing evidence, and recommended next queries.\n\n" +
	"Formatting rules:\n" +
	"- Use headings exactly as: Explanation, Key findings, Context coverage, Summary, Notes.\n" +
	"- Use simple hyphen bullets only; no nested lists unless absolutely necessary.\n" +
	"- Always include bracket citations that map to the Sources list. " +
	"If evidence is insufficient, state it and suggest what to search next.\n" +
	"- No emojis. No marketing tone."

// BuildAnswerPrompt numbers the rows from 1 so the model's [n] citations map
// back onto the returned sources.
func BuildAnswerPrompt(question string, rows []retrieval.Row) []ai.ChatMessage {
	blocks := make([]string, 0, len(rows))
	sources := make([]string, 0, len(rows))
	for i, row := range rows {
		r := row.Record
		blocks = append(blocks, fmt.Sprintf("[%d] %s (p.%d)\n%s", i+1, r.DocTitle, r.PageStart, r.Text))
		sources = append(sources, fmt.Sprintf("[%d] %s (%s) - p.%d | %s",
			i+1, r.DocTitle, yearOr(r.Year, "n.d."), r.PageStart, filepath.Base(r.DocPath)))
	}

	user := "Question: " + question + "\n\n" +
		"Context:\n" + strings.Join(blocks, "\n\n---\n\n") + "\n\n" +
		"Sources:\n" + strings.Join(sources, "\n") + "\n\n" +
		"Remember: Use only the context above. If unknown, say so clearly."

	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: answerSystemPrompt},
		{Role: ai.RoleUser, Content: user},
	}
}

const mindMapSystemPrompt = "You extract a compact concept graph from provided research snippets. " +
	"Return STRICT JSON with keys: nodes, edges. " +
	"Nodes: [{id, label, kind, weight}]; Edges: [{source, target, relation, weight}]. " +
	"Kinds must be one of: organism, stressor, platform, method, gene, concept. " +
	"Use short, canonical ids (lowercase, dashes)."

func buildMindMapPrompt(question string, ctx []evidence.Snippet) []ai.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\n\n", orNA(question))
	b.WriteString("CONTEXT SNIPPETS (title | year | page | path | snippet):\n")
	for _, c := range ctx {
		fmt.Fprintf(&b, "- %s | %s | p%d | %s\n%s\n\n", c.Title, yearOr(c.Year, "None"), c.Page, c.Path, c.Snippet)
	}
	b.WriteString("Rules:\n" +
		"- Merge duplicates across snippets.\n" +
		"- Prefer relations like 'affects', 'measured_in', 'associated_with', 'expressed_in', 'occurs_on'.\n" +
		"- Weight in [0.5..2.0] for salience.\n" +
		"Output JSON ONLY, no prose.")

	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: mindMapSystemPrompt},
		{Role: ai.RoleUser, Content: b.String()},
	}
}

var storyStyles = map[string]string{
	"scientific":    "Use sections: Background, Question, Methods, Findings, Limitations, Next steps.",
	"public":        "Write in plain language, add a short 'Why it matters'.",
	"chronological": "Organize by time: earliest to latest.",
	"thematic":      "Group by themes (stressor/platform/organism).",
}

var storyLengths = map[string]string{
	"short":  "~500 words",
	"medium": "~900 words",
	"long":   "~1300 words",
}

func buildStoryPrompt(question, mode, length string, ctx []evidence.Snippet) []ai.ChatMessage {
	system := "You write a cohesive narrative from research snippets with headings and clear flow. " +
		"Produce two outputs: 1) MARKDOWN story with H2/H3 headings; " +
		"2) OUTLINE as JSON array [{heading, key_points:[...]}]. " +
		"Be accurate and cite inline with [#] that map to Sources. " + storyStyles[mode]

	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\nTARGET LENGTH: %s\n\n", orNA(question), storyLengths[length])
	b.WriteString("SOURCES (index with #):\n")
	for i, c := range ctx {
		fmt.Fprintf(&b, "[%d] %s (%s) p%d - %s\n", i+1, c.Title, yearOr(c.Year, "None"), c.Page, c.Path)
	}
	b.WriteString("\nRESEARCH EXCERPTS:\n")
	for i, c := range ctx {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, c.Snippet)
	}
	b.WriteString("Return STRICT JSON with keys: markdown, outline. " +
		"The markdown must use the [#] indices for inline citations. No extra keys.")

	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: b.String()},
	}
}

func yearOr(year *string, fallback string) string {
	if y := model.Deref(year); y != "" {
		return y
	}
	return fallback
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
