// Package openai adapts the OpenAI API to the provider contracts.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

// Config holds the adapter settings.
type Config struct {
	APIKey         string
	BaseURL        string // optional, for OpenAI-compatible gateways
	Model          string // completion model, e.g. "gpt-4o-mini"
	EmbeddingModel string // e.g. "text-embedding-3-small"
	EmbedDim       int    // requested embedding dimensionality (0 = model default)
	Temperature    float32
}

// Client implements provider.Model and provider.Embedder over the OpenAI API.
type Client struct {
	client *goopenai.Client
	cfg    Config
}

// New creates an OpenAI provider client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" || cfg.EmbeddingModel == "" {
		return nil, errors.New("openai: model and embedding model are required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Complete sends the messages as a chat completion request and returns the
// first choice's text.
func (c *Client) Complete(ctx context.Context, messages []provider.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages:    toChatMessages(messages),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.cfg.EmbeddingModel),
	}
	if c.cfg.EmbedDim > 0 {
		req.Dimensions = c.cfg.EmbedDim
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classify("embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func toChatMessages(messages []provider.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		switch role {
		case provider.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case provider.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		default:
			role = goopenai.ChatMessageRoleUser
		}
		out[i] = goopenai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

// classify wraps err, tagging transient failures (rate limits, 5xx, network
// errors) with provider.ErrTransient so the engine's retry policy can act on
// the error type instead of matching strings.
func classify(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("openai: %s: %w: %w", op, provider.ErrTransient, err)
		default:
			return fmt.Errorf("openai: %s: %w", op, err)
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("openai: %s: %w: %w", op, provider.ErrTransient, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai: %s: %w", op, err)
	}

	// Anything else at this level is a transport failure (DNS, reset, EOF).
	return fmt.Errorf("openai: %s: %w: %w", op, provider.ErrTransient, err)
}
