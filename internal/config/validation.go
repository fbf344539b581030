package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates the selected provider's API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidHistory indicates a history bound is out of range.
	ErrInvalidHistory = errors.New("invalid history configuration")

	// ErrInvalidRetrieval indicates a retrieval parameter is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidBudget indicates the token budget is out of range.
	ErrInvalidBudget = errors.New("invalid token budget")

	// ErrInvalidTimeout indicates a timeout is non-positive or inconsistent.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPostgresURL indicates the Postgres connection URL is malformed.
	ErrInvalidPostgresURL = errors.New("invalid postgres URL")
)

// History bounds. The per-session cap must hold at least one full exchange
// and the prompt window can never exceed what the store retains.
const (
	MinTurns        = 2
	MaxAllowedTurns = 10000
)

// Validate checks the configuration for serving. It returns the first
// violation found, wrapped around the matching sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("%w: set CHATBOT_OPENAI_API_KEY", ErrMissingAPIKey)
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("%w: set CHATBOT_GEMINI_API_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidProvider, c.Provider, ProviderOpenAI, ProviderGemini)
	}

	if c.MaxTurns < MinTurns || c.MaxTurns > MaxAllowedTurns {
		return fmt.Errorf("%w: max_turns %d not in [%d, %d]", ErrInvalidHistory, c.MaxTurns, MinTurns, MaxAllowedTurns)
	}
	if c.WindowTurns <= 0 || c.WindowTurns > c.MaxTurns {
		return fmt.Errorf("%w: window_turns %d not in [1, max_turns=%d]", ErrInvalidHistory, c.WindowTurns, c.MaxTurns)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: max_sessions must be positive, got %d", ErrInvalidHistory, c.MaxSessions)
	}
	if c.IdleTimeout <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("%w: idle_timeout and sweep_interval must be positive", ErrInvalidTimeout)
	}

	if c.TopK <= 0 || c.TopK > 100 {
		return fmt.Errorf("%w: top_k %d not in [1, 100]", ErrInvalidRetrieval, c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("%w: min_score %.2f not in [0, 1]", ErrInvalidRetrieval, c.MinScore)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: embed_dim must be positive, got %d", ErrInvalidRetrieval, c.EmbedDim)
	}

	if c.TokenBudget <= 0 {
		return fmt.Errorf("%w: token_budget must be positive, got %d", ErrInvalidBudget, c.TokenBudget)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be non-negative, got %d", ErrInvalidTimeout, c.MaxRetries)
	}
	if c.GenTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: gen_timeout and request_timeout must be positive", ErrInvalidTimeout)
	}
	if c.GenTimeout > c.RequestTimeout {
		return fmt.Errorf("%w: gen_timeout %v exceeds request_timeout %v", ErrInvalidTimeout, c.GenTimeout, c.RequestTimeout)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("%w: max_in_flight must be positive, got %d", ErrInvalidTimeout, c.MaxInFlight)
	}

	if err := validatePostgresURL(c.PostgresURL); err != nil {
		return err
	}

	return nil
}

func validatePostgresURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPostgresURL)
	}
	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return fmt.Errorf("%w: %q must use postgres:// or postgresql:// scheme", ErrInvalidPostgresURL, maskURL(raw))
	}
	return nil
}
