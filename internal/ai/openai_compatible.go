package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one completion call. A zero Temperature uses the client default.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float32
	JSON        bool
}

type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	EmbedBatchSize int
	Temperature    float32
	Timeout        time.Duration
}

// OpenAICompatibleClient talks to any server exposing the OpenAI
// /embeddings and /chat/completions endpoints.
type OpenAICompatibleClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	batchSize      int
	temperature    float32
}

func NewOpenAICompatibleClient(cfg Config) *OpenAICompatibleClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	batch := cfg.EmbedBatchSize
	if batch <= 0 {
		batch = DefaultEmbedBatchSize
	}
	return &OpenAICompatibleClient{
		client:         openai.NewClientWithConfig(clientCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		batchSize:      batch,
		temperature:    cfg.Temperature,
	}
}

func (c *OpenAICompatibleClient) ChatModel() string {
	return c.chatModel
}

func (c *OpenAICompatibleClient) EmbeddingModel() string {
	return c.embeddingModel
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return resp.Choices[0].Message.Content, nil
}
