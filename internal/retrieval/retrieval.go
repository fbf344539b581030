// Package retrieval turns a user query into tenant-scoped context passages.
//
// The client embeds the query, runs a nearest-neighbor search against the
// document index, drops weak matches, and returns the survivors ordered by
// similarity. Transient failures of either step are retried a bounded number
// of times before the client gives up with ErrUnavailable.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

// ErrUnavailable reports that the retrieval backend could not be reached
// after exhausting retries.
var ErrUnavailable = errors.New("retrieval unavailable")

// Passage is a single retrieved document chunk.
type Passage struct {
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	TenantID string  `json:"-"`
}

// Index performs nearest-neighbor search over embedded documents.
type Index interface {
	Search(ctx context.Context, tenantID string, vec []float32, k int) ([]Passage, error)
}

// Config holds the retrieval settings.
type Config struct {
	TopK     int     // candidates fetched per query
	MinScore float64 // similarity floor, candidates below it are dropped

	// MaxRetries is the number of additional attempts after the first
	// failure. RetryDelay separates attempts.
	MaxRetries int
	RetryDelay time.Duration

	Logger log.Logger
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MinScore < 0 {
		c.MinScore = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
}

// Client retrieves context passages for chat queries.
type Client struct {
	embedder provider.Embedder
	index    Index
	cfg      Config
	logger   log.Logger
}

// NewClient creates a retrieval client.
func NewClient(embedder provider.Embedder, index Index, cfg Config) (*Client, error) {
	if embedder == nil {
		return nil, errors.New("retrieval: embedder is required")
	}
	if index == nil {
		return nil, errors.New("retrieval: index is required")
	}
	cfg.applyDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{embedder: embedder, index: index, cfg: cfg, logger: logger}, nil
}

// Retrieve returns the passages most similar to query within the tenant's
// documents, strongest first. Passages scoring below the configured floor are
// dropped, so the result may be empty even when the corpus has documents.
func (c *Client) Retrieve(ctx context.Context, tenantID, query string) ([]Passage, error) {
	if tenantID == "" {
		return nil, errors.New("retrieval: tenant id is required")
	}
	if query == "" {
		return nil, errors.New("retrieval: query is required")
	}

	var passages []Passage
	err := c.withRetry(ctx, func() error {
		vec, err := c.embedder.Embed(ctx, query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}
		passages, err = c.index.Search(ctx, tenantID, vec, c.cfg.TopK)
		if err != nil {
			// Index failures are almost always connectivity, so they
			// share the transient tag with provider rate limits.
			return fmt.Errorf("searching index: %w: %w", provider.ErrTransient, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	kept := passages[:0]
	for _, p := range passages {
		if p.TenantID != "" && p.TenantID != tenantID {
			c.logger.Warn("index returned a foreign tenant candidate, dropping",
				"tenant_id", tenantID,
				"candidate_tenant_id", p.TenantID,
				"source_id", p.SourceID)
			continue
		}
		if p.Score < c.cfg.MinScore {
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	c.logger.Debug("retrieval complete",
		"tenant_id", tenantID,
		"candidates", len(passages),
		"kept", len(kept))
	return kept, nil
}

// withRetry runs fn up to MaxRetries+1 times, sleeping RetryDelay between
// attempts. Context cancellation and permanent errors stop the loop early.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
			c.logger.Debug("retrying retrieval", "attempt", attempt)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !provider.Transient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
