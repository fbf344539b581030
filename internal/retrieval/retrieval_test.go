package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

type stubEmbedder struct {
	vec  []float32
	errs []error // consumed per call, nil entries succeed
	call int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	defer func() { e.call++ }()
	if e.call < len(e.errs) && e.errs[e.call] != nil {
		return nil, e.errs[e.call]
	}
	if e.vec == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return e.vec, nil
}

type stubIndex struct {
	passages []Passage
	errs     []error
	call     int
	gotK     int
	gotTen   string
}

func (ix *stubIndex) Search(_ context.Context, tenantID string, _ []float32, k int) ([]Passage, error) {
	defer func() { ix.call++ }()
	ix.gotK = k
	ix.gotTen = tenantID
	if ix.call < len(ix.errs) && ix.errs[ix.call] != nil {
		return nil, ix.errs[ix.call]
	}
	out := make([]Passage, len(ix.passages))
	copy(out, ix.passages)
	return out, nil
}

func newTestClient(t *testing.T, e provider.Embedder, ix Index, cfg Config) *Client {
	t.Helper()
	c, err := NewClient(e, ix, cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestRetrieveFiltersByMinScore(t *testing.T) {
	t.Parallel()

	ix := &stubIndex{passages: []Passage{
		{SourceID: "a", Text: "strong", Score: 0.9},
		{SourceID: "b", Text: "ok", Score: 0.6},
		{SourceID: "c", Text: "weak", Score: 0.3},
	}}
	c := newTestClient(t, &stubEmbedder{}, ix, Config{TopK: 5, MinScore: 0.5})

	got, err := c.Retrieve(context.Background(), "t1", "question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d passages, want 2", len(got))
	}
	if got[0].SourceID != "a" || got[1].SourceID != "b" {
		t.Errorf("unexpected passages: %+v", got)
	}
	if ix.gotK != 5 || ix.gotTen != "t1" {
		t.Errorf("index called with k=%d tenant=%q", ix.gotK, ix.gotTen)
	}
}

func TestRetrieveOrdersByScoreDescending(t *testing.T) {
	t.Parallel()

	ix := &stubIndex{passages: []Passage{
		{SourceID: "low", Score: 0.55},
		{SourceID: "high", Score: 0.95},
		{SourceID: "mid", Score: 0.7},
	}}
	c := newTestClient(t, &stubEmbedder{}, ix, Config{MinScore: 0.5})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if got[i].SourceID != id {
			t.Errorf("position %d: got %q, want %q", i, got[i].SourceID, id)
		}
	}
}

func TestRetrieveStableForEqualScores(t *testing.T) {
	t.Parallel()

	ix := &stubIndex{passages: []Passage{
		{SourceID: "first", Score: 0.8},
		{SourceID: "second", Score: 0.8},
		{SourceID: "third", Score: 0.8},
	}}
	c := newTestClient(t, &stubEmbedder{}, ix, Config{})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got[i].SourceID != id {
			t.Errorf("position %d: got %q, want %q", i, got[i].SourceID, id)
		}
	}
}

func TestRetrieveDropsForeignTenantRows(t *testing.T) {
	t.Parallel()

	ix := &stubIndex{passages: []Passage{
		{SourceID: "mine", Score: 0.9, TenantID: "t1"},
		{SourceID: "theirs", Score: 0.95, TenantID: "t2"},
	}}
	var logs bytes.Buffer
	c := newTestClient(t, &stubEmbedder{}, ix, Config{
		Logger: log.NewWithWriter(&logs, log.Config{}),
	})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].SourceID != "mine" {
		t.Errorf("unexpected passages: %+v", got)
	}
	if out := logs.String(); !strings.Contains(out, "foreign tenant") || !strings.Contains(out, "theirs") {
		t.Errorf("expected a warning naming the dropped candidate, got: %s", out)
	}
}

func TestRetrieveEmptyResult(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &stubEmbedder{}, &stubIndex{}, Config{MinScore: 0.5})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d passages, want 0", len(got))
	}
}

func TestRetrieveValidation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &stubEmbedder{}, &stubIndex{}, Config{})

	if _, err := c.Retrieve(context.Background(), "", "q"); err == nil {
		t.Error("expected error for empty tenant")
	}
	if _, err := c.Retrieve(context.Background(), "t1", ""); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestRetrieveRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("%w: connection reset", provider.ErrTransient)
	e := &stubEmbedder{errs: []error{transient, transient}}
	ix := &stubIndex{passages: []Passage{{SourceID: "a", Score: 0.9}}}
	c := newTestClient(t, e, ix, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d passages, want 1", len(got))
	}
	if e.call != 3 {
		t.Errorf("embedder called %d times, want 3", e.call)
	}
}

func TestRetrieveExhaustsRetries(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("%w: connection reset", provider.ErrTransient)
	e := &stubEmbedder{errs: []error{transient, transient, transient}}
	c := newTestClient(t, e, &stubIndex{}, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, err := c.Retrieve(context.Background(), "t1", "q")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if e.call != 3 {
		t.Errorf("embedder called %d times, want 3", e.call)
	}
}

func TestRetrieveDoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()

	e := &stubEmbedder{errs: []error{errors.New("invalid api key")}}
	c := newTestClient(t, e, &stubIndex{}, Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, err := c.Retrieve(context.Background(), "t1", "q")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if e.call != 1 {
		t.Errorf("embedder called %d times, want 1", e.call)
	}
}

func TestRetrieveRetriesIndexFailures(t *testing.T) {
	t.Parallel()

	ix := &stubIndex{
		passages: []Passage{{SourceID: "a", Score: 0.9}},
		errs:     []error{errors.New("connection refused")},
	}
	c := newTestClient(t, &stubEmbedder{}, ix, Config{MaxRetries: 1, RetryDelay: time.Millisecond})

	got, err := c.Retrieve(context.Background(), "t1", "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d passages, want 1", len(got))
	}
	if ix.call != 2 {
		t.Errorf("index called %d times, want 2", ix.call)
	}
}

func TestRetrieveStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("%w: slow backend", provider.ErrTransient)
	e := &stubEmbedder{errs: []error{transient, transient, transient, transient}}
	c := newTestClient(t, e, &stubIndex{}, Config{MaxRetries: 10, RetryDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Retrieve(ctx, "t1", "q")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if e.call > 2 {
		t.Errorf("embedder called %d times after cancellation", e.call)
	}
}
