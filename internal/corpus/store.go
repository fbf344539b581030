package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
)

// Store persists documents and answers similarity queries.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder provider.Embedder
	logger   log.Logger
}

// NewStore creates a document store.
func NewStore(pool *pgxpool.Pool, embedder provider.Embedder, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("corpus: pool is required")
	}
	if embedder == nil {
		return nil, errors.New("corpus: embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// Add embeds content and inserts it as a document for the tenant. Metadata is
// optional. The generated document ID is returned.
func (s *Store) Add(ctx context.Context, tenantID, sourceID, content string, metadata map[string]string) (uuid.UUID, error) {
	if tenantID == "" || sourceID == "" {
		return uuid.Nil, errors.New("corpus: tenant id and source id are required")
	}
	if content == "" {
		return uuid.Nil, errors.New("corpus: content is required")
	}

	vec, err := s.embed(ctx, content)
	if err != nil {
		return uuid.Nil, err
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corpus: encoding metadata: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (tenant_id, source_id, content, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		tenantID, sourceID, content, meta, vec,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corpus: inserting document: %w", err)
	}

	s.logger.Debug("document added", "tenant_id", tenantID, "source_id", sourceID, "id", id)
	return id, nil
}

// Search returns the k documents nearest to vec within the tenant's slice of
// the corpus, as passages scored by cosine similarity.
func (s *Store) Search(ctx context.Context, tenantID string, vec []float32, k int) ([]retrieval.Passage, error) {
	if k <= 0 {
		k = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT source_id, content, 1 - (embedding <=> $1) AS similarity
		 FROM documents
		 WHERE tenant_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vec), tenantID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("corpus: searching documents: %w", err)
	}
	defer rows.Close()

	var passages []retrieval.Passage
	for rows.Next() {
		p := retrieval.Passage{TenantID: tenantID}
		if err := rows.Scan(&p.SourceID, &p.Text, &p.Score); err != nil {
			return nil, fmt.Errorf("corpus: scanning passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corpus: reading passages: %w", err)
	}
	return passages, nil
}

// Get returns a document by ID within the tenant.
func (s *Store) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Document, error) {
	var (
		doc  Document
		meta []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, source_id, content, metadata, created_at
		 FROM documents
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&doc.ID, &doc.TenantID, &doc.SourceID, &doc.Content, &meta, &doc.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("corpus: document %s not found", id)
	case err != nil:
		return nil, fmt.Errorf("corpus: fetching document: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("corpus: decoding metadata: %w", err)
		}
	}
	return &doc, nil
}

// DeleteBySource removes every document the tenant ingested under sourceID
// and reports how many were removed.
func (s *Store) DeleteBySource(ctx context.Context, tenantID, sourceID string) (int64, error) {
	if tenantID == "" || sourceID == "" {
		return 0, errors.New("corpus: tenant id and source id are required")
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE tenant_id = $1 AND source_id = $2`,
		tenantID, sourceID,
	)
	if err != nil {
		return 0, fmt.Errorf("corpus: deleting documents: %w", err)
	}

	s.logger.Info("documents deleted",
		"tenant_id", tenantID, "source_id", sourceID, "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// Count returns the number of documents stored for the tenant.
func (s *Store) Count(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE tenant_id = $1`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("corpus: counting documents: %w", err)
	}
	return n, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("corpus: embedding content: %w", err)
	}
	if len(vec) == 0 {
		return pgvector.Vector{}, errors.New("corpus: empty embedding")
	}
	return pgvector.NewVector(vec), nil
}
