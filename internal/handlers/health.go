package handlers

import (
	"database/sql"
	"net/http"

	"spechub/internal/search"
)

// HealthHandler reports service health. Missing resources surface as
// warnings so an operator sees a half-built index before users do.
type HealthHandler struct {
	db        *sql.DB
	snapshots *search.Snapshots
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, snapshots *search.Snapshots) *HealthHandler {
	return &HealthHandler{db: db, snapshots: snapshots}
}

// HealthResponse represents the health check payload.
type HealthResponse struct {
	Status   string   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var warnings []string

	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unavailable",
			Warnings: []string{"database unreachable: " + err.Error()},
		})
		return
	}

	if ix := h.snapshots.Load(search.GranularityChunk); ix == nil || ix.Size() == 0 {
		warnings = append(warnings, "chunk lexical index not built")
	}
	if ix := h.snapshots.Load(search.GranularityPage); ix == nil || ix.Size() == 0 {
		warnings = append(warnings, "page lexical index not built")
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Warnings: warnings})
}
