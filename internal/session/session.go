// Package session provides the bounded, in-memory conversation store.
//
// Sessions are keyed by (tenant, user) and hold an ordered history of turns.
// History is process-local and best-effort: it survives neither restarts nor
// horizontal scaling. The store bounds memory three ways: a per-session turn
// cap (oldest turns trimmed first), a total session cap (least-recently-used
// session evicted), and an idle sweep.
package session

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation entry. Immutable once created.
type Turn struct {
	Role      string
	Text      string
	CreatedAt time.Time
}

// NewUserTurn builds a user turn stamped with the current time.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, CreatedAt: time.Now()}
}

// NewAssistantTurn builds an assistant turn stamped with the current time.
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text, CreatedAt: time.Now()}
}

// Key identifies a session. Tenant is the isolation boundary: keys with
// different tenants never share state.
type Key struct {
	TenantID string
	UserID   string
}
