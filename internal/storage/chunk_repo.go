package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks spechub/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk and sets its assigned ID.
	Insert(ctx context.Context, chunk *Chunk) error
	// GetByID gets a chunk joined with its document fields.
	// Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id int64) (*ChunkWithDoc, error)
	// ListAll returns every chunk joined with document fields, ordered
	// by document then chunk_index. Used by the index builders.
	ListAll(ctx context.Context) ([]ChunkWithDoc, error)
	// BySection returns the chunks whose section_id exactly matches,
	// ordered by document then chunk_index. Table-of-contents and
	// front-matter chunks are excluded.
	BySection(ctx context.Context, sectionID string) ([]ChunkWithDoc, error)
	// DeleteByDocument deletes all chunks for a document.
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk and sets its assigned ID.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *Chunk) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, page_start, page_end, section_id, heading,
		                     chunk_kind, is_table, is_definition, is_procedure, equation_score,
		                     table_uid, table_row_index, table_label, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.DocumentID, chunk.ChunkIndex, chunk.PageStart, chunk.PageEnd,
		nullIfEmpty(chunk.SectionID), nullIfEmpty(chunk.Heading),
		chunk.ChunkKind, chunk.IsTable, chunk.IsDefinition, chunk.IsProcedure, chunk.EquationScore,
		nullIfEmpty(chunk.TableUID), chunk.TableRowIndex, nullIfEmpty(chunk.TableLabel), chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	chunk.ID, _ = res.LastInsertId()
	return nil
}

const chunkWithDocColumns = `
	c.id, c.document_id, c.chunk_index, c.page_start, c.page_end,
	COALESCE(c.section_id, ''), COALESCE(c.heading, ''), c.chunk_kind,
	c.is_table, c.is_definition, c.is_procedure, c.equation_score,
	COALESCE(c.table_uid, ''), COALESCE(c.table_row_index, 0), COALESCE(c.table_label, ''), c.text,
	d.filename, d.display_name, d.doc_type, COALESCE(d.procedure_id, '')`

// GetByID gets a chunk joined with its document fields.
// Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id int64) (*ChunkWithDoc, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chunkWithDocColumns+`
		 FROM chunks c JOIN documents d ON d.id = c.document_id
		 WHERE c.id = ?`, id)

	var c ChunkWithDoc
	err := scanChunkWithDoc(row.Scan, &c)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	return &c, nil
}

// ListAll returns every chunk joined with document fields, ordered by
// document then chunk_index.
func (r *ChunkRepo) ListAll(ctx context.Context) ([]ChunkWithDoc, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkWithDocColumns+`
		 FROM chunks c JOIN documents d ON d.id = c.document_id
		 ORDER BY c.document_id, c.chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return collectChunks(rows)
}

// BySection returns the chunks whose section_id exactly matches,
// ordered by document then chunk_index. Table-of-contents and
// front-matter chunks are excluded so a section lookup never cites an
// index page.
func (r *ChunkRepo) BySection(ctx context.Context, sectionID string) ([]ChunkWithDoc, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkWithDocColumns+`
		 FROM chunks c JOIN documents d ON d.id = c.document_id
		 WHERE c.section_id = ? AND c.chunk_kind NOT IN (?, ?)
		 ORDER BY c.document_id, c.chunk_index`,
		sectionID, KindTOC, KindFrontMatter)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks by section: %w", err)
	}
	return collectChunks(rows)
}

// DeleteByDocument deletes all chunks for a document.
// Used when re-indexing a document before inserting fresh chunks.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

func collectChunks(rows *sql.Rows) ([]ChunkWithDoc, error) {
	defer func() {
		_ = rows.Close()
	}()

	var chunks []ChunkWithDoc
	for rows.Next() {
		var c ChunkWithDoc
		if err := scanChunkWithDoc(rows.Scan, &c); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return chunks, nil
}

func scanChunkWithDoc(scan func(dest ...any) error, c *ChunkWithDoc) error {
	return scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.PageStart, &c.PageEnd,
		&c.SectionID, &c.Heading, &c.ChunkKind,
		&c.IsTable, &c.IsDefinition, &c.IsProcedure, &c.EquationScore,
		&c.TableUID, &c.TableRowIndex, &c.TableLabel, &c.Text,
		&c.Filename, &c.DisplayName, &c.DocType, &c.ProcedureID,
	)
}
