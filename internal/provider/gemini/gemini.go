// Package gemini adapts the Gemini API to the provider contracts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

// Config holds the adapter settings.
type Config struct {
	APIKey         string
	Model          string // e.g. "gemini-2.5-flash"
	EmbeddingModel string // e.g. "gemini-embedding-001"
	EmbedDim       int32  // requested embedding dimensionality (0 = model default)
}

// Client implements provider.Model and provider.Embedder over the Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
}

// New creates a Gemini provider client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" || cfg.EmbeddingModel == "" {
		return nil, errors.New("gemini: model and embedding model are required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

// Complete sends the conversation and returns the generated text. A leading
// system message becomes the system instruction; remaining messages map to
// user and model turns.
func (c *Client) Complete(ctx context.Context, messages []provider.Message) (string, error) {
	var genCfg genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case provider.RoleSystem:
			genCfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case provider.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, &genCfg)
	if err != nil {
		return "", classify("generate content", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty generation response")
	}
	return text, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedCfg *genai.EmbedContentConfig
	if c.cfg.EmbedDim > 0 {
		dim := c.cfg.EmbedDim
		embedCfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := c.client.Models.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, embedCfg)
	if err != nil {
		return nil, classify("embed content", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini: empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// classify wraps err, tagging transient failures (rate limits, 5xx, network
// errors) with provider.ErrTransient.
func classify(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("gemini: %s: %w: %w", op, provider.ErrTransient, err)
		default:
			return fmt.Errorf("gemini: %s: %w", op, err)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gemini: %s: %w", op, err)
	}

	return fmt.Errorf("gemini: %s: %w: %w", op, provider.ErrTransient, err)
}
