package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // additional attempts after the first failure
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // backoff ceiling
	AttemptTimeout  time.Duration // deadline applied to each individual call
}

// DefaultRetryConfig returns defaults sized for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  30 * time.Second,
	}
}

// retryablePatterns is the fallback classification for providers that do not
// tag transient failures. Matched case-insensitively against err.Error().
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable", "overloaded"},
	{"connection reset", "connection refused", "timeout", "temporary"},
}

// retryableError reports whether err is worth another attempt. The typed
// transient tag wins; string matching covers errors that cross an untyped
// boundary.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if provider.Transient(err) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pat := range group {
			if strings.Contains(lower, pat) {
				return true
			}
		}
	}
	return false
}

// generator runs model completions with retry and a circuit breaker.
type generator struct {
	model   provider.Model
	retry   RetryConfig
	breaker *breaker
	logger  log.Logger
}

func newGenerator(model provider.Model, retry RetryConfig, brk *breaker, logger log.Logger) *generator {
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	def := DefaultRetryConfig()
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = def.InitialInterval
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = def.MaxInterval
	}
	if retry.AttemptTimeout <= 0 {
		retry.AttemptTimeout = def.AttemptTimeout
	}
	return &generator{model: model, retry: retry, breaker: brk, logger: logger}
}

// generate produces a completion with exponential backoff. Non-retryable
// errors fail immediately; every failure feeds the breaker.
func (g *generator) generate(ctx context.Context, messages []provider.Message) (string, error) {
	if err := g.breaker.allow(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var lastErr error
	delay := g.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		reply, err := g.attempt(ctx, messages)
		if err == nil {
			g.breaker.success()
			g.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return reply, nil
		}

		lastErr = err
		g.breaker.failure()

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
		}
		if !retryableError(err) {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		if attempt == g.retry.MaxRetries {
			break
		}

		g.logger.Debug("retrying generation",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, g.retry.MaxInterval)
		}

		if err := g.breaker.allow(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
	}

	return "", fmt.Errorf("%w: after %d attempts (elapsed %v): %w",
		ErrGenerationFailed, g.retry.MaxRetries+1, time.Since(start), lastErr)
}

// attempt runs a single completion under the per-attempt deadline and rejects
// blank replies.
func (g *generator) attempt(ctx context.Context, messages []provider.Message) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.retry.AttemptTimeout)
	defer cancel()

	reply, err := g.model.Complete(attemptCtx, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("model returned empty reply")
	}
	return reply, nil
}
