package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"spechub/internal/contextutil"
	"spechub/internal/tables"
)

// TablesHandler serves table metadata, paginated rows, and cell grids.
type TablesHandler struct {
	projector *tables.Projector
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(projector *tables.Projector) *TablesHandler {
	return &TablesHandler{projector: projector}
}

// Meta handles GET /api/tables/meta?table_uid=...
func (h *TablesHandler) Meta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid := r.URL.Query().Get("table_uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "table_uid is required")
		return
	}

	meta, err := h.projector.GetMeta(ctx, uid)
	if err != nil {
		h.handleError(w, r, err, "Failed to load table")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Rows handles GET /api/tables/rows?table_uid=...&limit=...&offset=...&include_cells=...
func (h *TablesHandler) Rows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	uid := q.Get("table_uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "table_uid is required")
		return
	}

	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	includeCells := false
	if raw := q.Get("include_cells"); raw != "" {
		includeCells = strings.EqualFold(raw, "true") || raw == "1"
	}

	page, err := h.projector.Rows(ctx, uid, limit, offset, includeCells)
	if err != nil {
		h.handleError(w, r, err, "Failed to load table rows")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Cells handles GET /api/tables/cells?table_uid=...
func (h *TablesHandler) Cells(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid := r.URL.Query().Get("table_uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "table_uid is required")
		return
	}

	grid, err := h.projector.Cells(ctx, uid)
	if err != nil {
		h.handleError(w, r, err, "Failed to load table cells")
		return
	}
	if grid == nil {
		writeError(w, http.StatusNotFound, "Table has no cell data")
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (h *TablesHandler) handleError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if errors.Is(err, tables.ErrUnknownTable) {
		writeError(w, http.StatusNotFound, "Unknown table")
		return
	}
	logger.ErrorContext(ctx, "table projection error", "error", err)
	writeError(w, http.StatusInternalServerError, defaultMsg)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
