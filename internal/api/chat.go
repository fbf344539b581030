package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jt1777/Chatbot-sub001/internal/chat"
	"github.com/jt1777/Chatbot-sub001/internal/log"
)

// maxRequestBody caps the accepted request size at 1 MiB.
const maxRequestBody = 1 << 20

// defaultUserID is used when the request does not name a user.
const defaultUserID = "default"

// Responder answers chat requests. *chat.Orchestrator satisfies it.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) (*chat.Result, error)
}

type chatRequest struct {
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	TenantID   string `json:"tenantId"`
	StrictMode *bool  `json:"strictMode"` // defaults to true when absent
}

type chatResponse struct {
	Reply     string       `json:"reply"`
	Sources   []chatSource `json:"sources"`
	Degraded  bool         `json:"degraded,omitempty"`
	Timestamp string       `json:"timestamp"`
}

type chatSource struct {
	SourceID string  `json:"sourceId"`
	Score    float64 `json:"score"`
}

type chatHandler struct {
	responder Responder
	logger    log.Logger
}

// send handles POST /chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", requestIDFromContext(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req chatRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", logger)
		return
	}

	if req.UserID == "" {
		req.UserID = defaultUserID
	}
	strict := true
	if req.StrictMode != nil {
		strict = *req.StrictMode
	}

	result, err := h.responder.Respond(r.Context(), chat.Request{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Message:  req.Message,
		Strict:   strict,
	})
	if err != nil {
		h.writeChatError(w, err, logger)
		return
	}

	sources := make([]chatSource, 0, len(result.Passages))
	for _, p := range result.Passages {
		sources = append(sources, chatSource{SourceID: p.SourceID, Score: p.Score})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:     result.Reply,
		Sources:   sources,
		Degraded:  result.Degraded,
		Timestamp: result.CreatedAt.Format(time.RFC3339),
	}, logger)
}

// writeChatError maps the orchestrator's error taxonomy to HTTP statuses.
func (h *chatHandler) writeChatError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), logger)
	case errors.Is(err, chat.ErrOverloaded):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "overloaded", "server is at capacity, retry shortly", logger)
	case errors.Is(err, chat.ErrPromptTooLarge):
		logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "prompt_too_large", "prompt exceeds the configured token budget", logger)
	case errors.Is(err, chat.ErrRetrievalUnavailable):
		logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "retrieval_unavailable", "context retrieval is unavailable", logger)
	default:
		logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer the request", logger)
	}
}
