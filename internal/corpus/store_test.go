package corpus_test

import (
	"context"
	"testing"

	"github.com/jt1777/Chatbot-sub001/internal/corpus"
	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/testutil"
)

func setupStore(t *testing.T) (*corpus.Store, *testutil.FakeEmbedder) {
	t.Helper()

	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	embedder := &testutil.FakeEmbedder{Dim: 768}
	store, err := corpus.NewStore(tdb.Pool, embedder, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, embedder
}

func TestAddAndSearch(t *testing.T) {
	store, embedder := setupStore(t)
	ctx := context.Background()

	docs := []string{
		"Go is a statically typed language.",
		"The capital of France is Paris.",
		"PostgreSQL supports vector similarity search.",
	}
	for i, content := range docs {
		if _, err := store.Add(ctx, "t1", "kb", content, map[string]string{"n": string(rune('a' + i))}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	// Search with the exact embedding of one document; it must come back
	// first with similarity ~1.
	vec, err := embedder.Embed(ctx, docs[1])
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	passages, err := store.Search(ctx, "t1", vec, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(passages))
	}
	if passages[0].Text != docs[1] {
		t.Errorf("top passage = %q, want %q", passages[0].Text, docs[1])
	}
	if passages[0].Score < 0.99 {
		t.Errorf("top score = %f, want ~1", passages[0].Score)
	}
	for i := 1; i < len(passages); i++ {
		if passages[i].Score > passages[i-1].Score {
			t.Errorf("passages not in descending score order: %f > %f", passages[i].Score, passages[i-1].Score)
		}
	}
}

func TestTenantScoping(t *testing.T) {
	store, embedder := setupStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "t1", "src", "tenant one document", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, "t2", "src", "tenant two document", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	vec, err := embedder.Embed(ctx, "tenant one document")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	passages, err := store.Search(ctx, "t1", vec, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(passages))
	}
	if passages[0].TenantID != "t1" || passages[0].Text != "tenant one document" {
		t.Errorf("unexpected passage: %+v", passages[0])
	}
}

func TestGetAndMetadata(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "t1", "src", "with metadata", map[string]string{"lang": "en"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	doc, err := store.Get(ctx, "t1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Content != "with metadata" || doc.Metadata["lang"] != "en" {
		t.Errorf("unexpected document: %+v", doc)
	}

	// Other tenants cannot read it.
	if _, err := store.Get(ctx, "t2", id); err == nil {
		t.Error("expected error for cross-tenant Get")
	}
}

func TestDeleteBySourceAndCount(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Add(ctx, "t1", "old", "doc", nil); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := store.Add(ctx, "t1", "keep", "doc", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	n, err := store.Count(ctx, "t1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}

	deleted, err := store.DeleteBySource(ctx, "t1", "old")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	n, err = store.Count(ctx, "t1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after delete = %d, want 1", n)
	}
}
