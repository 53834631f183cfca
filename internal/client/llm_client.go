package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/videodub/api/internal/config"
)

// ChatCompleter is a chat-style completion endpoint.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is one system+user prompt pair.
type CompletionRequest struct {
	System      string
	User        string
	JSON        bool // ask for a JSON object response
	MaxTokens   int
	Temperature float32
}

// LLMClient implements ChatCompleter for OpenAI compatible APIs
type LLMClient struct {
	api       *openai.Client
	apiKey    string
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewLLMClient creates a new chat completion client
func NewLLMClient(cfg *config.OpenAIConfig) *LLMClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &LLMClient{
		api:       openai.NewClientWithConfig(oc),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    slog.Default().With("component", "llm"),
	}
}

// Complete sends a chat completion request and returns the first choice
func (c *LLMClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	// go-openai drops a zero temperature from the payload
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	c.logger.Debug("chat completion", "model", c.model, "json", req.JSON, "chars", len(req.User))

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", c.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

// wrapError converts go-openai errors into *APIError so callers can
// classify them without importing the SDK.
func (c *LLMClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion failed: %w", &APIError{
			Service:    "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr.Message,
		})
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat completion failed: %w", &APIError{
			Service:    "openai",
			StatusCode: reqErr.HTTPStatusCode,
			Body:       reqErr.Error(),
		})
	}

	return fmt.Errorf("chat completion failed: %w", err)
}

// IsConfigured returns true if the client has valid configuration
func (c *LLMClient) IsConfigured() bool {
	return c.apiKey != ""
}
