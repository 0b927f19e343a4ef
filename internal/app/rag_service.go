package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/evidence"
	"spacebio-rag/internal/facet"
	"spacebio-rag/internal/retrieval"
)

var ErrGenerationFailed = errors.New("generation failed")

const (
	defaultAskTopK     = 8
	defaultSearchTopK  = 10
	defaultMindMapTopK = 20
	defaultStoryTopK   = 15
	maxTopK            = 100

	answerTemperature  = 0.2
	mindMapTemperature = 0.2
	storyTemperature   = 0.3
)

// ChatCompleter produces one chat completion.
type ChatCompleter interface {
	Complete(ctx context.Context, req ai.ChatRequest) (string, error)
}

// Retriever selects evidence rows for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) ([]retrieval.Row, error)
}

type RAGService struct {
	retriever Retriever
	chat      ChatCompleter
}

func NewRAGService(retriever Retriever, chat ChatCompleter) *RAGService {
	return &RAGService{retriever: retriever, chat: chat}
}

type AskInput struct {
	Question string
	TopK     int
	Filters  facet.Facets
	// Rerank applies the facet bonus and reports inferred facets.
	Rerank bool
}

type AskResult struct {
	Answer         string            `json:"answer"`
	Sources        []evidence.Source `json:"sources"`
	InferredFacets *facet.Facets     `json:"inferred_facets,omitempty"`
	QueryGuess     *facet.Facets     `json:"query_guess,omitempty"`
}

// Ask retrieves evidence for the question and asks the model to answer from it.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	topK, err := resolveTopK(input.TopK, defaultAskTopK)
	if err != nil {
		return nil, err
	}

	rows, err := s.retriever.Retrieve(ctx, retrieval.Query{
		Question: question,
		K:        topK,
		Filters:  input.Filters,
		Rerank:   input.Rerank,
	})
	if err != nil {
		return nil, err
	}

	answer, err := s.chat.Complete(ctx, ai.ChatRequest{
		Messages:    BuildAnswerPrompt(question, rows),
		Temperature: answerTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	result := &AskResult{
		Answer:  strings.TrimSpace(answer),
		Sources: evidence.Cite(evidence.Summarize(rows)),
	}
	if input.Rerank {
		records := recordsOf(rows)
		inferred := facet.Infer(records)
		guess := facet.Guess(question)
		result.InferredFacets = &inferred
		result.QueryGuess = &guess
	}
	return result, nil
}

// Search returns scored result rows without generation.
func (s *RAGService) Search(ctx context.Context, query string, topK int) ([]evidence.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	k, err := resolveTopK(topK, defaultSearchTopK)
	if err != nil {
		return nil, err
	}
	rows, err := s.retriever.Retrieve(ctx, retrieval.Query{Question: query, K: k})
	if err != nil {
		return nil, err
	}
	return evidence.Summarize(rows), nil
}

type ContextInput struct {
	Question string
	TopK     int
	Filters  facet.Facets
	Paths    []string
}

// Context selects rows by allowlist or by question and returns generation
// snippets in citation order.
func (s *RAGService) Context(ctx context.Context, input ContextInput) ([]evidence.Snippet, error) {
	return s.pickContext(ctx, input, defaultAskTopK)
}

func (s *RAGService) pickContext(ctx context.Context, input ContextInput, defaultK int) ([]evidence.Snippet, error) {
	question := strings.TrimSpace(input.Question)
	paths := cleanPaths(input.Paths)
	if question == "" && len(paths) == 0 {
		return nil, ErrInvalidInput
	}
	k, err := resolveTopK(input.TopK, defaultK)
	if err != nil {
		return nil, err
	}
	rows, err := s.retriever.Retrieve(ctx, retrieval.Query{
		Question: question,
		K:        k,
		Filters:  input.Filters,
		Paths:    paths,
	})
	if err != nil {
		return nil, err
	}
	return evidence.Assemble(rows), nil
}

type MindMapNode struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Kind   string  `json:"kind"`
	Weight float64 `json:"weight"`
}

type MindMapEdge struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
}

type MindMapResult struct {
	Nodes         []MindMapNode                 `json:"nodes"`
	Edges         []MindMapEdge                 `json:"edges"`
	SupportByNode map[string][]evidence.Snippet `json:"supportByNode"`
}

// MindMap asks the model for a concept graph over the selected context.
// Every node is supported by the whole context.
func (s *RAGService) MindMap(ctx context.Context, input ContextInput) (*MindMapResult, error) {
	snippets, err := s.pickContext(ctx, input, defaultMindMapTopK)
	if err != nil {
		return nil, err
	}

	raw, err := s.chat.Complete(ctx, ai.ChatRequest{
		Messages:    buildMindMapPrompt(strings.TrimSpace(input.Question), snippets),
		Temperature: mindMapTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var graph struct {
		Nodes []MindMapNode `json:"nodes"`
		Edges []MindMapEdge `json:"edges"`
	}
	if err := json.Unmarshal([]byte(raw), &graph); err != nil {
		return nil, fmt.Errorf("%w: mind map is not valid json: %v", ErrGenerationFailed, err)
	}

	result := &MindMapResult{
		Nodes:         make([]MindMapNode, 0, len(graph.Nodes)),
		Edges:         make([]MindMapEdge, 0, len(graph.Edges)),
		SupportByNode: make(map[string][]evidence.Snippet),
	}
	for _, n := range graph.Nodes {
		if n.ID == "" {
			continue
		}
		if n.Weight == 0 {
			n.Weight = 1
		}
		result.Nodes = append(result.Nodes, n)
		result.SupportByNode[n.ID] = append(result.SupportByNode[n.ID], snippets...)
	}
	for _, e := range graph.Edges {
		if e.Weight == 0 {
			e.Weight = 1
		}
		result.Edges = append(result.Edges, e)
	}
	return result, nil
}

type StoryInput struct {
	ContextInput
	Mode   string
	Length string
}

type StoryOutlineItem struct {
	Heading   string   `json:"heading"`
	KeyPoints []string `json:"key_points"`
}

type StoryResult struct {
	Markdown string             `json:"markdown"`
	Outline  []StoryOutlineItem `json:"outline"`
	Sources  []evidence.Snippet `json:"sources"`
}

// Story asks the model for a cited narrative over the selected context.
func (s *RAGService) Story(ctx context.Context, input StoryInput) (*StoryResult, error) {
	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = "scientific"
	}
	length := strings.ToLower(strings.TrimSpace(input.Length))
	if length == "" {
		length = "short"
	}
	if _, ok := storyStyles[mode]; !ok {
		return nil, fmt.Errorf("%w: unknown story mode %q", ErrInvalidInput, input.Mode)
	}
	if _, ok := storyLengths[length]; !ok {
		return nil, fmt.Errorf("%w: unknown story length %q", ErrInvalidInput, input.Length)
	}

	snippets, err := s.pickContext(ctx, input.ContextInput, defaultStoryTopK)
	if err != nil {
		return nil, err
	}

	raw, err := s.chat.Complete(ctx, ai.ChatRequest{
		Messages:    buildStoryPrompt(strings.TrimSpace(input.Question), mode, length, snippets),
		Temperature: storyTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var story struct {
		Markdown string             `json:"markdown"`
		Outline  []StoryOutlineItem `json:"outline"`
	}
	if err := json.Unmarshal([]byte(raw), &story); err != nil {
		return nil, fmt.Errorf("%w: story is not valid json: %v", ErrGenerationFailed, err)
	}
	if story.Outline == nil {
		story.Outline = []StoryOutlineItem{}
	}
	return &StoryResult{Markdown: story.Markdown, Outline: story.Outline, Sources: snippets}, nil
}

func resolveTopK(k, fallback int) (int, error) {
	if k == 0 {
		return fallback, nil
	}
	if k < 0 || k > maxTopK {
		return 0, fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidInput, maxTopK)
	}
	return k, nil
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
