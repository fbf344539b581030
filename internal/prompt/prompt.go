// Package prompt assembles model input from the system prompt, retrieved
// passages, conversation history, and the current user message under a token
// budget.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
	"github.com/jt1777/Chatbot-sub001/internal/session"
)

// ErrTooLarge reports that the fixed parts of the prompt (system prompt and
// current user message) do not fit the budget even with all passages and
// history removed.
var ErrTooLarge = errors.New("prompt exceeds token budget")

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = "You are a helpful assistant. Answer using the provided context when it is relevant, and say so when it is not."

const contextHeader = "Relevant context:"

// Prompt is an assembled model input.
type Prompt struct {
	Messages        []provider.Message
	Passages        []retrieval.Passage // passages that survived trimming, strongest first
	EstimatedTokens int
}

// Config holds the assembler settings.
type Config struct {
	SystemPrompt string
	TokenBudget  int // total estimated tokens the prompt may use
	Logger       log.Logger
}

// Assembler builds prompts under a fixed token budget.
type Assembler struct {
	systemPrompt string
	budget       int
	logger       log.Logger
}

// NewAssembler creates a prompt assembler.
func NewAssembler(cfg Config) (*Assembler, error) {
	if cfg.TokenBudget <= 0 {
		return nil, errors.New("prompt: token budget must be positive")
	}
	sys := cfg.SystemPrompt
	if sys == "" {
		sys = DefaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Assembler{systemPrompt: sys, budget: cfg.TokenBudget, logger: logger}, nil
}

// Assemble builds the model input. When the full prompt exceeds the budget it
// trims the weakest passages first, then the oldest history turns. The system
// prompt and the current user message are never trimmed; if they alone exceed
// the budget, Assemble fails with ErrTooLarge.
//
// window must be in chronological order and passages in descending score
// order, as their producers return them.
func (a *Assembler) Assemble(window []session.Turn, passages []retrieval.Passage, userMessage string) (*Prompt, error) {
	if userMessage == "" {
		return nil, errors.New("prompt: user message is required")
	}

	fixed := estimateTokens(a.systemPrompt) + estimateTokens(userMessage)
	if fixed > a.budget {
		return nil, fmt.Errorf("%w: fixed parts need %d of %d", ErrTooLarge, fixed, a.budget)
	}
	remaining := a.budget - fixed

	keptTurns := window
	keptPassages := passages
	used := historyTokens(keptTurns) + passageTokens(keptPassages)

	// Weakest passages go first. Passages arrive strongest first, so trim
	// from the tail.
	for used > remaining && len(keptPassages) > 0 {
		used -= passageCost(keptPassages[len(keptPassages)-1])
		keptPassages = keptPassages[:len(keptPassages)-1]
	}

	// Then oldest turns.
	for used > remaining && len(keptTurns) > 0 {
		used -= turnCost(keptTurns[0])
		keptTurns = keptTurns[1:]
	}

	if trimmedTurns, trimmedPassages := len(window)-len(keptTurns), len(passages)-len(keptPassages); trimmedTurns > 0 || trimmedPassages > 0 {
		a.logger.Debug("prompt trimmed to budget",
			"dropped_turns", trimmedTurns,
			"dropped_passages", trimmedPassages,
			"budget", a.budget)
	}

	messages := make([]provider.Message, 0, len(keptTurns)+2)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: a.systemContent(keptPassages),
	})
	for _, t := range keptTurns {
		role := provider.RoleUser
		if t.Role == session.RoleAssistant {
			role = provider.RoleAssistant
		}
		messages = append(messages, provider.Message{Role: role, Content: t.Text})
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: userMessage})

	return &Prompt{
		Messages:        messages,
		Passages:        keptPassages,
		EstimatedTokens: fixed + used,
	}, nil
}

// systemContent renders the system prompt with the retrieved passages
// appended as a numbered context block.
func (a *Assembler) systemContent(passages []retrieval.Passage) string {
	if len(passages) == 0 {
		return a.systemPrompt
	}
	var b strings.Builder
	b.WriteString(a.systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] (%s) %s", i+1, p.SourceID, p.Text)
	}
	return b.String()
}

func historyTokens(turns []session.Turn) int {
	total := 0
	for _, t := range turns {
		total += turnCost(t)
	}
	return total
}

func passageTokens(passages []retrieval.Passage) int {
	total := 0
	for _, p := range passages {
		total += passageCost(p)
	}
	return total
}

func turnCost(t session.Turn) int { return estimateTokens(t.Text) }

func passageCost(p retrieval.Passage) int {
	return estimateTokens(p.SourceID) + estimateTokens(p.Text)
}
