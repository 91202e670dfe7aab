package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spechub/internal/handlers"
	"spechub/internal/search"
	"spechub/internal/storage"
	"spechub/internal/tables"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AskEngine   handlers.AskEngine
	Retriever   handlers.Searcher
	Projector   *tables.Projector
	Documents   storage.DocumentStore
	DocumentDir string
	DB          *sql.DB
	Snapshots   *search.Snapshots
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.AskEngine)
	searchHandler := handlers.NewSearchHandler(deps.Retriever)
	tablesHandler := handlers.NewTablesHandler(deps.Projector)
	documentsHandler := handlers.NewDocumentsHandler(deps.Documents, deps.DocumentDir)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Snapshots)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/search", searchHandler)

		r.Route("/tables", func(r chi.Router) {
			r.Get("/meta", tablesHandler.Meta)
			r.Get("/rows", tablesHandler.Rows)
			r.Get("/cells", tablesHandler.Cells)
		})

		r.Get("/documents", documentsHandler.List)
		r.Get("/documents/file", documentsHandler.File)
		r.Get("/documents/open", documentsHandler.Open)

		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
