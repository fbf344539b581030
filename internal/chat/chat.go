// Package chat orchestrates the retrieval-augmented conversation pipeline:
// validate, read history, retrieve context, assemble the prompt, generate,
// and persist both sides of the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/prompt"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
	"github.com/jt1777/Chatbot-sub001/internal/session"
)

// NoContextReply is returned in strict mode when retrieval finds nothing
// relevant. The model is not called in that case.
const NoContextReply = "I don't have relevant information to answer that question."

// MaxMessageRunes caps the accepted user message length.
const MaxMessageRunes = 8192

// SessionStore is the conversation history the orchestrator reads and
// appends to.
type SessionStore interface {
	Append(tenantID, userID string, turn session.Turn) (uint64, error)
	Window(tenantID, userID string, n int) []session.Turn
}

// Retriever supplies context passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID, query string) ([]retrieval.Passage, error)
}

// Request is one user message to answer.
type Request struct {
	TenantID string
	UserID   string
	Message  string

	// Strict controls the retrieval policy. When true, retrieval failures
	// fail the request and an empty retrieval short-circuits to
	// NoContextReply. When false, the pipeline degrades to answering
	// without context.
	Strict bool
}

// Result is the orchestrator's answer.
type Result struct {
	Reply     string
	Passages  []retrieval.Passage // sources the reply drew on, strongest first
	Degraded  bool                // true when retrieval failed and the reply has no context
	CreatedAt time.Time
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Sessions  SessionStore
	Retriever Retriever
	Assembler *prompt.Assembler
	Model     provider.Model

	Retry   RetryConfig
	Breaker BreakerConfig

	// WindowTurns is how much history feeds each prompt.
	WindowTurns int

	// MaxInFlight bounds concurrent requests; excess requests fail fast
	// with ErrOverloaded.
	MaxInFlight int

	// RequestTimeout bounds the whole pipeline for one request.
	RequestTimeout time.Duration

	Logger log.Logger
}

// Orchestrator runs the chat pipeline.
//
// Orchestrator is safe for concurrent use by multiple goroutines.
type Orchestrator struct {
	sessions    SessionStore
	retriever   Retriever
	assembler   *prompt.Assembler
	gen         *generator
	windowTurns int
	timeout     time.Duration
	inflight    chan struct{}
	logger      log.Logger
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("chat: session store is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("chat: retriever is required")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("chat: assembler is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("chat: model is required")
	}
	if cfg.WindowTurns <= 0 {
		cfg.WindowTurns = 10
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 64
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		sessions:    cfg.Sessions,
		retriever:   cfg.Retriever,
		assembler:   cfg.Assembler,
		gen:         newGenerator(cfg.Model, cfg.Retry, newBreaker(cfg.Breaker), logger),
		windowTurns: cfg.WindowTurns,
		timeout:     cfg.RequestTimeout,
		inflight:    make(chan struct{}, cfg.MaxInFlight),
		logger:      logger,
	}, nil
}

// Respond answers one user message. Validation happens before any state
// changes; once the user turn is recorded it stays recorded even when a
// later stage fails.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*Result, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validate(req); err != nil {
		return nil, err
	}

	select {
	case o.inflight <- struct{}{}:
		defer func() { <-o.inflight }()
	default:
		return nil, fmt.Errorf("%w: %d requests in flight", ErrOverloaded, cap(o.inflight))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	logger := o.logger.With("tenant_id", req.TenantID, "user_id", req.UserID)

	// History is read before the new message is appended so the prompt
	// window does not contain the message twice.
	window := o.sessions.Window(req.TenantID, req.UserID, o.windowTurns)

	if _, err := o.sessions.Append(req.TenantID, req.UserID, session.NewUserTurn(req.Message)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	passages, degraded, err := o.retrieve(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	if req.Strict && len(passages) == 0 {
		return o.finish(req, NoContextReply, nil, false, logger, start)
	}

	assembled, err := o.assembler.Assemble(window, passages, req.Message)
	if err != nil {
		if errors.Is(err, prompt.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrPromptTooLarge, err)
		}
		return nil, fmt.Errorf("assembling prompt: %w", err)
	}

	reply, err := o.gen.generate(ctx, assembled.Messages)
	if err != nil {
		logger.Warn("generation failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	return o.finish(req, reply, assembled.Passages, degraded, logger, start)
}

// retrieve applies the request's retrieval policy. In strict mode a failed
// retrieval fails the request; otherwise the pipeline continues without
// context and the result is marked degraded.
func (o *Orchestrator) retrieve(ctx context.Context, req Request, logger log.Logger) ([]retrieval.Passage, bool, error) {
	passages, err := o.retriever.Retrieve(ctx, req.TenantID, req.Message)
	if err == nil {
		return passages, false, nil
	}
	if req.Strict {
		return nil, false, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	logger.Warn("retrieval failed, answering without context", "error", err)
	return nil, true, nil
}

func (o *Orchestrator) finish(req Request, reply string, passages []retrieval.Passage, degraded bool, logger log.Logger, start time.Time) (*Result, error) {
	if _, err := o.sessions.Append(req.TenantID, req.UserID, session.NewAssistantTurn(reply)); err != nil {
		// The reply exists; losing the history write should not turn a
		// good answer into an error for the caller.
		logger.Warn("recording assistant turn failed", "error", err)
	}

	logger.Info("chat completed",
		"passages", len(passages),
		"degraded", degraded,
		"elapsed", time.Since(start))

	return &Result{
		Reply:     reply,
		Passages:  passages,
		Degraded:  degraded,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func validate(req Request) error {
	if req.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidRequest)
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.Message == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}
	if n := len([]rune(req.Message)); n > MaxMessageRunes {
		return fmt.Errorf("%w: message length %d exceeds %d", ErrInvalidRequest, n, MaxMessageRunes)
	}
	return nil
}
