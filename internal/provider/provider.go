// Package provider defines the contracts the chat engine requires from
// external model providers, plus the transient-failure sentinel adapters use
// to signal that a call is worth retrying.
//
// Adapters live in subpackages (openai, gemini); the engine only ever sees
// these interfaces.
package provider

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single prompt message in provider-neutral form.
type Message struct {
	Role    string
	Content string
}

// Model generates a completion for an ordered message list. A Model is
// single-shot: it keeps no memory of prior calls, so all conversational
// context must be carried in messages.
type Model interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Embedder converts text into a vector suitable for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrTransient marks provider failures that are safe to retry: rate limits,
// 5xx responses, timeouts, connection resets. Adapters wrap such failures
// with this sentinel; everything else (bad request, auth) fails permanently.
var ErrTransient = errors.New("transient provider error")

// Transient reports whether err carries the ErrTransient sentinel or is a
// context deadline (a timed-out attempt whose parent may still have budget).
func Transient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
