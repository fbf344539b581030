package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/chat"
	"github.com/jt1777/Chatbot-sub001/internal/log"
	"github.com/jt1777/Chatbot-sub001/internal/retrieval"
)

type stubResponder struct {
	result *chat.Result
	err    error
	gotReq chat.Request
	called bool
}

func (s *stubResponder) Respond(_ context.Context, req chat.Request) (*chat.Result, error) {
	s.called = true
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &chat.Result{
		Reply:     "the answer",
		Passages:  []retrieval.Passage{{SourceID: "doc-1", Score: 0.9}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func newTestServer(t *testing.T, responder Responder) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Responder: responder,
		RateBurst: 1000,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestChatHappyPath(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{}
	srv := newTestServer(t, responder)

	w := postChat(t, srv, `{"message":"what is the fact?","tenantId":"t1","userId":"u1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Reply != "the answer" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].SourceID != "doc-1" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("timestamp = %q", resp.Timestamp)
	}

	if responder.gotReq.TenantID != "t1" || responder.gotReq.UserID != "u1" {
		t.Errorf("request = %+v", responder.gotReq)
	}
	if !responder.gotReq.Strict {
		t.Error("strict mode should default to true")
	}
}

func TestChatDefaults(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{}
	srv := newTestServer(t, responder)

	w := postChat(t, srv, `{"message":"hi","tenantId":"t1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if responder.gotReq.UserID != defaultUserID {
		t.Errorf("user id = %q, want %q", responder.gotReq.UserID, defaultUserID)
	}
}

func TestChatStrictModeFalse(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{}
	srv := newTestServer(t, responder)

	w := postChat(t, srv, `{"message":"hi","tenantId":"t1","strictMode":false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.gotReq.Strict {
		t.Error("strict mode should be false")
	}
}

func TestChatWireFieldNames(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{}
	srv := newTestServer(t, responder)

	w := postChat(t, srv, `{"message":"hello","userId":"u1","tenantId":"t1","strictMode":false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if responder.gotReq.UserID != "u1" || responder.gotReq.TenantID != "t1" || responder.gotReq.Strict {
		t.Errorf("request = %+v", responder.gotReq)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"sourceId":"doc-1"`) {
		t.Errorf("body missing camelCase source field: %s", body)
	}
	for _, key := range []string{"user_id", "tenant_id", "strict_mode", "source_id"} {
		if strings.Contains(body, key) {
			t.Errorf("body contains snake_case key %q: %s", key, body)
		}
	}
}

func TestChatErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid request", err: chat.ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "overloaded", err: chat.ErrOverloaded, wantStatus: http.StatusTooManyRequests, wantCode: "overloaded"},
		{name: "prompt too large", err: chat.ErrPromptTooLarge, wantStatus: http.StatusInternalServerError, wantCode: "prompt_too_large"},
		{name: "retrieval down", err: chat.ErrRetrievalUnavailable, wantStatus: http.StatusInternalServerError, wantCode: "retrieval_unavailable"},
		{name: "generation failed", err: chat.ErrGenerationFailed, wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, &stubResponder{err: tt.err})
			w := postChat(t, srv, `{"message":"hi","tenantId":"t1"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding error response: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestChatMalformedJSON(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{}
	srv := newTestServer(t, responder)

	tests := []struct {
		name string
		body string
	}{
		{name: "truncated", body: `{"message":`},
		{name: "unknown field", body: `{"message":"hi","tenantId":"t1","bogus":1}`},
		{name: "wrong type", body: `{"message":42,"tenantId":"t1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(t, srv, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if responder.called {
		t.Error("responder reached with malformed input")
	}
}

func TestChatPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubResponder{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	r.Header.Set("Origin", "http://example.com")
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestChatRequestIDHeader(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubResponder{})

	w := postChat(t, srv, `{"message":"hi","tenantId":"t1"}`)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubResponder{})

	for _, path := range []string{"/health", "/ready"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler().ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

type panicResponder struct{}

func (panicResponder) Respond(context.Context, chat.Request) (*chat.Result, error) {
	panic("boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, panicResponder{})

	w := postChat(t, srv, `{"message":"hi","tenantId":"t1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Responder: &stubResponder{},
		RateBurst: 2,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	var last int
	for i := 0; i < 5; i++ {
		w := postChat(t, srv, `{"message":"hi","tenantId":"t1"}`)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}
