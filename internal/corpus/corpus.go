// Package corpus manages the tenant-scoped document store backing retrieval.
//
// Documents live in PostgreSQL with pgvector embeddings; similarity search
// uses cosine distance over a per-tenant slice of the table.
package corpus

import (
	"time"

	"github.com/google/uuid"
)

// Document is a stored, embedded chunk of source material.
type Document struct {
	ID        uuid.UUID
	TenantID  string
	SourceID  string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}
