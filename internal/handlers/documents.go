package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"spechub/internal/contextutil"
	"spechub/internal/storage"
)

// DocumentsHandler serves the document list and the source PDFs.
type DocumentsHandler struct {
	docs        storage.DocumentStore
	documentDir string
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(docs storage.DocumentStore, documentDir string) *DocumentsHandler {
	return &DocumentsHandler{docs: docs, documentDir: documentDir}
}

// DocumentResponse is one corpus document in the listing.
type DocumentResponse struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
	DocType     string `json:"doc_type"`
	ProcedureID string `json:"procedure_id,omitempty"`
	PageCount   int    `json:"page_count"`
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := h.docs.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentResponse{
			ID:          d.ID,
			Filename:    d.Filename,
			DisplayName: d.DisplayName,
			DocType:     d.DocType,
			ProcedureID: d.ProcedureID,
			PageCount:   d.PageCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// File handles GET /api/documents/file?filename=... by streaming the
// PDF. A traversal attempt gets the same 404 as a missing file, so the
// response does not reveal whether the probed path exists.
func (h *DocumentsHandler) File(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	path, ok := h.safePath(filename)
	if !ok {
		logger.WarnContext(ctx, "rejected document path", "filename", filename)
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	if _, err := h.docs.GetByFilename(ctx, filepath.Base(path)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to look up document", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to look up document")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// Open handles GET /api/documents/open?filename=...&page=N with a
// redirect to the file anchored at the page.
func (h *DocumentsHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	q := r.URL.Query()
	filename := q.Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		page = parsed
	}

	if _, ok := h.safePath(filename); !ok {
		logger.WarnContext(ctx, "rejected document path", "filename", filename)
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	doc, err := h.docs.GetByFilename(ctx, filepath.Base(filename))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		logger.ErrorContext(ctx, "failed to look up document", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to look up document")
		return
	}

	if page < 1 || (doc.PageCount > 0 && page > doc.PageCount) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Page %d is out of range for %s (1-%d)", page, doc.Filename, doc.PageCount))
		return
	}

	target := fmt.Sprintf("/api/documents/file?filename=%s#page=%d", url.QueryEscape(doc.Filename), page)
	http.Redirect(w, r, target, http.StatusFound)
}

// safePath resolves a requested filename inside the document directory.
// Anything that escapes the directory is rejected.
func (h *DocumentsHandler) safePath(filename string) (string, bool) {
	cleaned := filepath.Base(filepath.Clean(filename))
	if cleaned == "." || cleaned == ".." || cleaned == "" || strings.ContainsAny(cleaned, "\x00") {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(cleaned), ".pdf") {
		return "", false
	}

	root, err := filepath.Abs(h.documentDir)
	if err != nil {
		return "", false
	}
	path := filepath.Join(root, cleaned)
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
