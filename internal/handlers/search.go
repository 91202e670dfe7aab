package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spechub/internal/contextutil"
	"spechub/internal/search"
)

// Searcher is the retrieval dependency of the search endpoint.
type Searcher interface {
	Retrieve(ctx context.Context, query string, scope search.Scope, cls search.Classification, k int, g search.Granularity) ([]search.Result, error)
}

// SearchHandler serves page-level browse search. Unlike ask, it never
// synthesizes: the result list is the product.
type SearchHandler struct {
	retriever Searcher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(retriever Searcher) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

// SearchRequest represents the HTTP request payload for browse search.
type SearchRequest struct {
	Query       string `json:"query"`
	Scope       string `json:"scope,omitempty"`
	ProcedureID string `json:"procedure_id,omitempty"`
	K           int    `json:"k,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// SearchResult is one browse hit.
type SearchResult struct {
	DocumentID  int64   `json:"document_id"`
	Filename    string  `json:"filename"`
	DisplayName string  `json:"display_name"`
	DocType     string  `json:"doc_type"`
	ProcedureID string  `json:"procedure_id,omitempty"`
	PageNumber  int     `json:"page_number"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	OpenURL     string  `json:"open_url"`
}

// SearchResponse represents the HTTP response payload for browse search.
type SearchResponse struct {
	Query string `json:"query"`
	Scope string `json:"scope"`
	// Total is the length of the full ranked list when its end is known,
	// either because the list was exhausted or because the browse depth
	// cap was reached; null while more results may exist.
	Total   *int           `json:"total"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
	Results []SearchResult `json:"results"`
}

// maxBrowseDepth bounds how far offset paging can walk the ranked list.
// A window that would reach past it is truncated at the cap, and the
// truncation is reported through Total.
const maxBrowseDepth = 50

// ServeHTTP runs a page-granularity hybrid search and returns one
// window of the ranked list.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
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
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	k := req.K
	if k <= 0 {
		k = 10
	}
	if k > maxBrowseDepth {
		k = maxBrowseDepth
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	// The window [offset, offset+k) needs that many ranked hits; the
	// retriever never ranks past the browse depth cap.
	requested := k + offset
	if requested > maxBrowseDepth {
		requested = maxBrowseDepth
	}

	cls := search.Classify(req.Query)
	results, err := h.retriever.Retrieve(ctx, req.Query, scope, cls, requested, search.GranularityPage)
	if err != nil {
		if errors.Is(err, search.ErrIndexUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Retrieval index unavailable")
			return
		}
		logger.ErrorContext(ctx, "search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	var total *int
	if len(results) < requested || requested == maxBrowseDepth {
		n := len(results)
		total = &n
	}

	if offset > len(results) {
		offset = len(results)
	}
	window := results[offset:]

	out := make([]SearchResult, 0, len(window))
	for _, res := range window {
		out = append(out, SearchResult{
			DocumentID:  res.DocumentID,
			Filename:    res.Filename,
			DisplayName: res.DisplayName,
			DocType:     res.DocType,
			ProcedureID: res.ProcedureID,
			PageNumber:  res.PageStart,
			Snippet:     res.Snippet,
			Score:       res.Score,
			OpenURL:     res.OpenURL,
		})
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   req.Query,
		Scope:   scope.Name,
		Total:   total,
		Offset:  offset,
		Limit:   k,
		Results: out,
	})
}
