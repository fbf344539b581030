package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
)

// FakeIndex is an in-memory vector index scoring by cosine similarity.
type FakeIndex struct {
	mu   sync.Mutex
	docs []fakeDoc
	Err  error // returned on every Search when set
}

type fakeDoc struct {
	tenantID string
	sourceID string
	text     string
	vec      []float32
}

// Add stores a document vector.
func (ix *FakeIndex) Add(tenantID, sourceID, text string, vec []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = append(ix.docs, fakeDoc{
		tenantID: tenantID,
		sourceID: sourceID,
		text:     text,
		vec:      append([]float32(nil), vec...),
	})
}

func (ix *FakeIndex) Search(_ context.Context, tenantID string, vec []float32, k int) ([]retrieval.Passage, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.Err != nil {
		return nil, ix.Err
	}

	var out []retrieval.Passage
	for _, d := range ix.docs {
		if d.tenantID != tenantID {
			continue
		}
		out = append(out, retrieval.Passage{
			SourceID: d.sourceID,
			Text:     d.text,
			Score:    cosine(vec, d.vec),
			TenantID: d.tenantID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
