package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/retrieval"
)

type fakeRetriever struct {
	rows    []retrieval.Row
	err     error
	queries []retrieval.Query
}

func (f *fakeRetriever) Retrieve(_ context.Context, q retrieval.Query) ([]retrieval.Row, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeChat struct {
	reply    string
	err      error
	requests []ai.ChatRequest
}

func (f *fakeChat) Complete(_ context.Context, req ai.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func row(id int, path string, page int, organism, text string, score float32) retrieval.Row {
	return retrieval.Row{
		Record: &model.ChunkRecord{
			ID:        id,
			DocPath:   path,
			DocTitle:  "Title " + path,
			Year:      model.StringPtr("2019"),
			PageStart: page,
			PageEnd:   page,
			Organism:  model.StringPtr(organism),
			Text:      text,
		},
		Score:         score,
		AdjustedScore: score,
	}
}

func TestAsk_AnswersWithCitedSources(t *testing.T) {
	ret := &fakeRetriever{rows: []retrieval.Row{
		row(0, "data/pdfs/a.pdf", 3, "rodent", "Mice lost bone density.", 0.9),
		row(1, "data/pdfs/b.pdf", 1, "rodent", "Rats too.", 0.8),
	}}
	chat := &fakeChat{reply: "  Explanation\n- Bone loss [1].  "}
	svc := NewRAGService(ret, chat)

	res, err := svc.Ask(context.Background(), AskInput{Question: "bone loss in mice?"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if res.Answer != "Explanation\n- Bone loss [1]." {
		t.Fatalf("unexpected answer %q", res.Answer)
	}
	if len(res.Sources) != 2 || res.Sources[0].Snippet != "" || res.Sources[0].Score == nil {
		t.Fatalf("unexpected sources %+v", res.Sources)
	}
	if res.InferredFacets != nil || res.QueryGuess != nil {
		t.Fatalf("plain ask must not report facets")
	}
	if ret.queries[0].K != defaultAskTopK || ret.queries[0].Rerank {
		t.Fatalf("unexpected query %+v", ret.queries[0])
	}

	req := chat.requests[0]
	if req.Temperature != answerTemperature || req.JSON {
		t.Fatalf("unexpected chat request %+v", req)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "[1] Title data/pdfs/a.pdf (p.3)") || !strings.Contains(user, "[2] Title data/pdfs/b.pdf (2019) - p.1 | b.pdf") {
		t.Fatalf("prompt missing numbered context:\n%s", user)
	}
}

func TestAsk_SimpleReportsFacets(t *testing.T) {
	ret := &fakeRetriever{rows: []retrieval.Row{
		row(0, "a.pdf", 1, "rodent", "x", 0.9),
		row(1, "b.pdf", 1, "rodent", "y", 0.8),
		row(2, "c.pdf", 1, "human", "z", 0.7),
	}}
	svc := NewRAGService(ret, &fakeChat{reply: "ok"})

	res, err := svc.Ask(context.Background(), AskInput{Question: "microgravity effects on mice", Rerank: true})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !ret.queries[0].Rerank {
		t.Fatalf("expected rerank to be requested")
	}
	if res.InferredFacets == nil || model.Deref(res.InferredFacets.Organism) != "rodent" {
		t.Fatalf("unexpected inferred facets %+v", res.InferredFacets)
	}
	if res.QueryGuess == nil || model.Deref(res.QueryGuess.Organism) != "rodent" || model.Deref(res.QueryGuess.Stressor) != "microgravity" {
		t.Fatalf("unexpected query guess %+v", res.QueryGuess)
	}
}

func TestAsk_Errors(t *testing.T) {
	svc := NewRAGService(&fakeRetriever{}, &fakeChat{})
	if _, err := svc.Ask(context.Background(), AskInput{Question: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Ask(context.Background(), AskInput{Question: "q", TopK: 101}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid top_k, got %v", err)
	}

	svc = NewRAGService(&fakeRetriever{err: retrieval.ErrIndexUnavailable}, &fakeChat{})
	if _, err := svc.Ask(context.Background(), AskInput{Question: "q"}); !errors.Is(err, retrieval.ErrIndexUnavailable) {
		t.Fatalf("expected index unavailable, got %v", err)
	}

	svc = NewRAGService(&fakeRetriever{}, &fakeChat{err: errors.New("timeout")})
	if _, err := svc.Ask(context.Background(), AskInput{Question: "q"}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestSearch_SummarizesWithScores(t *testing.T) {
	long := strings.Repeat("a", 500)
	ret := &fakeRetriever{rows: []retrieval.Row{row(0, "a.pdf", 1, "rodent", long, 0.7)}}
	svc := NewRAGService(ret, &fakeChat{})

	out, err := svc.Search(context.Background(), "bone", 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if ret.queries[0].K != defaultSearchTopK {
		t.Fatalf("expected default k %d, got %d", defaultSearchTopK, ret.queries[0].K)
	}
	if len(out) != 1 || out[0].Snippet != strings.Repeat("a", 400)+"..." || *out[0].Score != 0.7 {
		t.Fatalf("unexpected search output %+v", out)
	}
}

func TestContext_RequiresQuestionOrPaths(t *testing.T) {
	ret := &fakeRetriever{rows: []retrieval.Row{row(0, "a.pdf", 2, "rodent", "text", 0)}}
	svc := NewRAGService(ret, &fakeChat{})

	if _, err := svc.Context(context.Background(), ContextInput{Paths: []string{" "}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	out, err := svc.Context(context.Background(), ContextInput{Paths: []string{" a.pdf "}})
	if err != nil {
		t.Fatalf("context failed: %v", err)
	}
	if len(ret.queries[0].Paths) != 1 || ret.queries[0].Paths[0] != "a.pdf" {
		t.Fatalf("paths not cleaned: %+v", ret.queries[0].Paths)
	}
	if len(out) != 1 || out[0].Page != 2 || out[0].Snippet != "text" {
		t.Fatalf("unexpected snippets %+v", out)
	}
}

func TestMindMap_ParsesGraphAndDefaultsWeights(t *testing.T) {
	ret := &fakeRetriever{rows: []retrieval.Row{
		row(0, "a.pdf", 1, "rodent", "one", 0.9),
		row(1, "b.pdf", 1, "rodent", "two", 0.8),
	}}
	chat := &fakeChat{reply: `{"nodes":[{"id":"mice","label":"Mice","kind":"organism"},{"id":"bone","label":"Bone","kind":"concept","weight":1.5},{"label":"no id"}],` +
		`"edges":[{"source":"mice","target":"bone","relation":"affects"}]}`}
	svc := NewRAGService(ret, chat)

	res, err := svc.MindMap(context.Background(), ContextInput{Question: "bone"})
	if err != nil {
		t.Fatalf("mind map failed: %v", err)
	}
	if ret.queries[0].K != defaultMindMapTopK {
		t.Fatalf("expected default k %d, got %d", defaultMindMapTopK, ret.queries[0].K)
	}
	if !chat.requests[0].JSON {
		t.Fatalf("mind map must request json output")
	}
	if len(res.Nodes) != 2 || res.Nodes[0].Weight != 1 || res.Nodes[1].Weight != 1.5 {
		t.Fatalf("unexpected nodes %+v", res.Nodes)
	}
	if len(res.Edges) != 1 || res.Edges[0].Weight != 1 {
		t.Fatalf("unexpected edges %+v", res.Edges)
	}
	if len(res.SupportByNode["mice"]) != 2 || len(res.SupportByNode["bone"]) != 2 {
		t.Fatalf("every node should cite the whole context: %+v", res.SupportByNode)
	}
}

func TestMindMap_InvalidJSONFails(t *testing.T) {
	svc := NewRAGService(&fakeRetriever{}, &fakeChat{reply: "here is your map"})
	if _, err := svc.MindMap(context.Background(), ContextInput{Question: "q"}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestStory_ValidatesAndParses(t *testing.T) {
	ret := &fakeRetriever{rows: []retrieval.Row{row(0, "a.pdf", 1, "rodent", "one", 0.9)}}
	chat := &fakeChat{reply: `{"markdown":"## Background\nMice [1].","outline":[{"heading":"Background","key_points":["mice"]}]}`}
	svc := NewRAGService(ret, chat)

	if _, err := svc.Story(context.Background(), StoryInput{ContextInput: ContextInput{Question: "q"}, Mode: "poetic"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
	if _, err := svc.Story(context.Background(), StoryInput{ContextInput: ContextInput{Question: "q"}, Length: "epic"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid length, got %v", err)
	}

	res, err := svc.Story(context.Background(), StoryInput{ContextInput: ContextInput{Question: "q"}, Mode: "Public", Length: "long"})
	if err != nil {
		t.Fatalf("story failed: %v", err)
	}
	if ret.queries[0].K != defaultStoryTopK {
		t.Fatalf("expected default k %d, got %d", defaultStoryTopK, ret.queries[0].K)
	}
	req := chat.requests[0]
	if req.Temperature != storyTemperature || !req.JSON {
		t.Fatalf("unexpected chat request %+v", req)
	}
	if !strings.Contains(req.Messages[0].Content, "plain language") || !strings.Contains(req.Messages[1].Content, "~1300 words") {
		t.Fatalf("story prompt missing mode or length")
	}
	if res.Markdown == "" || len(res.Outline) != 1 || len(res.Sources) != 1 {
		t.Fatalf("unexpected story %+v", res)
	}

	chat.reply = "not json"
	if _, err := svc.Story(context.Background(), StoryInput{ContextInput: ContextInput{Question: "q"}}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}
