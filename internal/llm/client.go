package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrAPIKeyMissing   = errors.New("openai api key is not configured")
	ErrEmptyCompletion = errors.New("completion returned no choices")
)

type Client struct {
	api    *openai.Client
	model  string
	hasKey bool
	log    *slog.Logger
}

// CompletionRequest is one system+user exchange sent as a single, non-streaming call.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// NewClient wires go-openai. baseURL may point at any OpenAI-compatible endpoint; empty keeps the default.
func NewClient(apiKey, baseURL, model string, log *slog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT4
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		hasKey: apiKey != "",
		log:    log,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.hasKey {
		return "", ErrAPIKeyMissing
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if c.log != nil {
			c.log.Error("chat completion failed", "model", c.model, "err", err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	if c.log != nil {
		c.log.Info("chat completion done", "model", c.model, "completion_tokens", resp.Usage.CompletionTokens)
	}
	return resp.Choices[0].Message.Content, nil
}
