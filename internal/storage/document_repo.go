package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks spechub/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Insert inserts a document and returns its assigned ID.
	Insert(ctx context.Context, doc *Document) (int64, error)
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Document, error)
	// GetByFilename gets a document by its stored filename.
	// Returns ErrNotFound if not found.
	GetByFilename(ctx context.Context, filename string) (*Document, error)
	// List returns all documents ordered by doc_type then display_name.
	List(ctx context.Context) ([]Document, error)
	// InsertPage inserts a single extracted page.
	InsertPage(ctx context.Context, page *Page) error
	// ListPages returns all pages joined with document fields,
	// ordered by document then page number.
	ListPages(ctx context.Context) ([]PageWithDoc, error)
	// GetPage returns one page of a document. Returns ErrNotFound if
	// the document has no such page.
	GetPage(ctx context.Context, documentID int64, pageNumber int) (*Page, error)
}

// DocumentRepo provides methods for document and page operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a document and returns its assigned ID.
func (r *DocumentRepo) Insert(ctx context.Context, doc *Document) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (filename, display_name, doc_type, procedure_id, file_path, content_hash, page_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.Filename, doc.DisplayName, doc.DocType, nullIfEmpty(doc.ProcedureID),
		doc.FilePath, doc.ContentHash, doc.PageCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read document id: %w", err)
	}
	return id, nil
}

// GetByID gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, display_name, doc_type, COALESCE(procedure_id, ''), file_path, content_hash, page_count, ingested_at
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetByFilename gets a document by its stored filename.
// Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByFilename(ctx context.Context, filename string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, display_name, doc_type, COALESCE(procedure_id, ''), file_path, content_hash, page_count, ingested_at
		 FROM documents WHERE filename = ?`, filename)
	return scanDocument(row)
}

// List returns all documents ordered by doc_type then display_name.
func (r *DocumentRepo) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, display_name, doc_type, COALESCE(procedure_id, ''), file_path, content_hash, page_count, ingested_at
		 FROM documents ORDER BY doc_type, display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.DisplayName, &d.DocType, &d.ProcedureID,
			&d.FilePath, &d.ContentHash, &d.PageCount, &d.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// InsertPage inserts a single extracted page.
func (r *DocumentRepo) InsertPage(ctx context.Context, page *Page) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pages (document_id, page_number, text, char_count) VALUES (?, ?, ?, ?)`,
		page.DocumentID, page.PageNumber, page.Text, len(page.Text),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	page.ID, _ = res.LastInsertId()
	page.CharCount = len(page.Text)
	return nil
}

// ListPages returns all pages joined with document fields,
// ordered by document then page number.
func (r *DocumentRepo) ListPages(ctx context.Context) ([]PageWithDoc, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.document_id, p.page_number, p.text, p.char_count,
		        d.filename, d.display_name, d.doc_type, COALESCE(d.procedure_id, '')
		 FROM pages p JOIN documents d ON d.id = p.document_id
		 ORDER BY p.document_id, p.page_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var pages []PageWithDoc
	for rows.Next() {
		var p PageWithDoc
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &p.CharCount,
			&p.Filename, &p.DisplayName, &p.DocType, &p.ProcedureID); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return pages, nil
}

// GetPage returns one page of a document. Returns ErrNotFound if the
// document has no such page.
func (r *DocumentRepo) GetPage(ctx context.Context, documentID int64, pageNumber int) (*Page, error) {
	var p Page
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, page_number, text, char_count FROM pages
		 WHERE document_id = ? AND page_number = ?`,
		documentID, pageNumber,
	).Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &p.CharCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	return &p, nil
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Filename, &d.DisplayName, &d.DocType, &d.ProcedureID,
		&d.FilePath, &d.ContentHash, &d.PageCount, &d.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &d, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
