package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spechub/internal/answer"
	"spechub/internal/contextutil"
	"spechub/internal/search"
)

// AskEngine is the answer engine dependency of the ask endpoint.
// Implemented by answer.Engine; mocked in tests.
type AskEngine interface {
	Ask(ctx context.Context, req answer.Request) (answer.Response, error)
}

// AskHandler handles question answering requests.
type AskHandler struct {
	engine AskEngine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine AskEngine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload for questions.
type AskRequest struct {
	Query       string `json:"query"`
	Scope       string `json:"scope,omitempty"`
	ProcedureID string `json:"procedure_id,omitempty"`
	K           int    `json:"k,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

// ServeHTTP answers one question. A failed generation call still
// returns 200 with citations and the degraded flag; 503 is reserved
// for both retrieval signals being dead.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	scope, err := search.ParseScope(req.Scope, req.ProcedureID)
	if err != nil {
		logger.WarnContext(ctx, "invalid scope", "scope", req.Scope, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode := answer.ModeAnswer
	switch req.Mode {
	case "", string(answer.ModeAnswer):
	case string(answer.ModeSourcesOnly):
		mode = answer.ModeSourcesOnly
	default:
		writeError(w, http.StatusBadRequest, "Mode must be answer or sources_only")
		return
	}

	resp, err := h.engine.Ask(ctx, answer.Request{
		Query: req.Query,
		Scope: scope,
		K:     req.K,
		Mode:  mode,
	})
	if err != nil {
		if errors.Is(err, search.ErrIndexUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Retrieval index unavailable")
			return
		}
		if errors.Is(err, search.ErrInvalidScope) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.ErrorContext(ctx, "ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
