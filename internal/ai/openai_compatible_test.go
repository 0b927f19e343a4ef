package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestComplete(t *testing.T) {
	var got struct {
		Model          string         `json:"model"`
		Temperature    float32        `json:"temperature"`
		Messages       []ChatMessage  `json:"messages"`
		ResponseFormat map[string]any `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(Config{BaseURL: srv.URL, APIKey: "k", ChatModel: "gpt-4o-mini", Temperature: 0.2})
	out, err := c.Complete(context.Background(), ChatRequest{
		Messages:    []ChatMessage{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected content %q", out)
	}
	if got.Model != "gpt-4o-mini" || got.Temperature != 0.3 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Fatalf("expected json response format, got %v", got.ResponseFormat)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(Config{BaseURL: srv.URL, APIKey: "k", ChatModel: "m"})
	if _, err := c.Complete(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
