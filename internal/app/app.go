// Package app wires configuration into a running chat engine: provider
// clients, storage, retrieval, and the orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jt1777/Chatbot-sub001/internal/chat"
	"github.com/jt1777/Chatbot-sub001/internal/config"
	"github.com/jt1777/Chatbot-sub001/internal/corpus"
	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/prompt"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
	"github.com/jt1777/Chatbot-sub001/internal/provider/gemini"
	"github.com/jt1777/Chatbot-sub001/internal/provider/openai"
	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
	"github.com/jt1777/Chatbot-sub001/internal/session"
)

// App holds the assembled engine and its shared resources.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Pool         *pgxpool.Pool
	Sessions     *session.Store
	Corpus       *corpus.Store
	Model        provider.Model
	Embedder     provider.Embedder
	Orchestrator *chat.Orchestrator
}

// Setup builds the full engine from configuration. ctx bounds provider
// client creation and the session sweeper's lifetime.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := NewLogger(cfg)

	model, embedder, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	corpusStore, err := corpus.NewStore(pool, embedder, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	retriever, err := retrieval.NewClient(embedder, corpusStore, retrieval.Config{
		TopK:       cfg.TopK,
		MinScore:   cfg.MinScore,
		MaxRetries: 2,
		Logger:     logger,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	assembler, err := prompt.NewAssembler(prompt.Config{
		SystemPrompt: cfg.SystemPrompt,
		TokenBudget:  cfg.TokenBudget,
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessions := session.NewStore(session.Config{
		MaxTurns:      cfg.MaxTurns,
		MaxSessions:   cfg.MaxSessions,
		IdleTimeout:   cfg.IdleTimeout,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})
	sessions.Start(ctx)

	orch, err := chat.New(chat.Config{
		Sessions:  sessions,
		Retriever: retriever,
		Assembler: assembler,
		Model:     model,
		Retry: chat.RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			AttemptTimeout: cfg.GenTimeout,
		},
		WindowTurns:    cfg.WindowTurns,
		MaxInFlight:    cfg.MaxInFlight,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Pool:         pool,
		Sessions:     sessions,
		Corpus:       corpusStore,
		Model:        model,
		Embedder:     embedder,
		Orchestrator: orch,
	}, nil
}

// Close releases shared resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newProvider builds the model and embedder clients for the configured
// provider. The same client backs both roles.
func newProvider(ctx context.Context, cfg *config.Config) (provider.Model, provider.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:         cfg.GeminiKey,
			Model:          cfg.ResolvedModel(),
			EmbeddingModel: cfg.ResolvedEmbedder(),
			EmbedDim:       int32(cfg.EmbedDim),
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		c, err := openai.New(openai.Config{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			Model:          cfg.ResolvedModel(),
			EmbeddingModel: cfg.ResolvedEmbedder(),
			EmbedDim:       cfg.EmbedDim,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	}
}
