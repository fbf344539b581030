// Package testutil provides shared testing utilities: deterministic fake
// providers and a PostgreSQL test container with pgvector.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/jt1777/Chatbot-sub001/internal/provider"
)

// FakeEmbedder produces deterministic unit vectors derived from the input
// text. Identical texts embed identically, different texts almost never do.
type FakeEmbedder struct {
	Dim int // vector dimensionality (0 = 8)

	mu    sync.Mutex
	calls int
	Err   error // returned on every call when set
}

func (e *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dim := e.Dim
	if dim <= 0 {
		dim = 8
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Calls returns how many times Embed ran.
func (e *FakeEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// FakeModel replays scripted replies and errors.
type FakeModel struct {
	Replies []string // consumed per call; the last one repeats
	Errs    []error  // consumed per call; nil entries succeed

	mu    sync.Mutex
	calls int
	last  []provider.Message
}

func (m *FakeModel) Complete(_ context.Context, messages []provider.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++
	m.last = append([]provider.Message(nil), messages...)

	if call < len(m.Errs) && m.Errs[call] != nil {
		return "", m.Errs[call]
	}
	if len(m.Replies) == 0 {
		return "fake reply", nil
	}
	if call >= len(m.Replies) {
		return m.Replies[len(m.Replies)-1], nil
	}
	return m.Replies[call], nil
}

// Calls returns how many times Complete ran.
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages returns the messages from the most recent Complete call.
func (m *FakeModel) LastMessages() []provider.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
