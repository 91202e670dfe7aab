package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_table_store.go -package=mocks spechub/internal/storage TableStore

import (
	"context"
	"database/sql"
	"fmt"
)

// TableStore defines the interface for extracted-table storage operations.
type TableStore interface {
	// Insert inserts a table record. The TableUID must be set.
	Insert(ctx context.Context, t *Table) error
	// GetMeta returns a table joined with its document fields.
	// Returns ErrNotFound if the uid is unknown.
	GetMeta(ctx context.Context, tableUID string) (*TableMeta, error)
	// InsertRow inserts one rendered table row.
	InsertRow(ctx context.Context, row *TableRowRecord) error
	// Rows returns up to limit rows starting at offset, ordered by
	// row_index. An offset at or past the row count yields an empty
	// slice, not an error.
	Rows(ctx context.Context, tableUID string, limit, offset int) ([]TableRowRecord, error)
	// CountRows returns the total row count for a table.
	CountRows(ctx context.Context, tableUID string) (int, error)
	// InsertCell inserts one structured cell.
	InsertCell(ctx context.Context, cell *TableCellRecord) error
	// Cells returns all structured cells for a table ordered by row
	// then column. An empty slice means the table has no cell data.
	Cells(ctx context.Context, tableUID string) ([]TableCellRecord, error)
}

// TableRepo provides methods for extracted-table operations.
// It implements the TableStore interface.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo creates a new TableRepo.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// Insert inserts a table record. The TableUID must be set.
func (r *TableRepo) Insert(ctx context.Context, t *Table) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tables (table_uid, document_id, section_id, page_number, table_index_on_page, table_label, title)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TableUID, t.DocumentID, nullIfEmpty(t.SectionID), t.PageNumber,
		t.TableIndexOnPage, t.TableLabel, nullIfEmpty(t.Title),
	)
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

// GetMeta returns a table joined with its document fields.
// Returns ErrNotFound if the uid is unknown.
func (r *TableRepo) GetMeta(ctx context.Context, tableUID string) (*TableMeta, error) {
	var m TableMeta
	err := r.db.QueryRowContext(ctx,
		`SELECT t.table_uid, t.document_id, COALESCE(t.section_id, ''), t.page_number,
		        t.table_index_on_page, t.table_label, COALESCE(t.title, ''),
		        d.filename, d.display_name, d.doc_type, COALESCE(d.procedure_id, '')
		 FROM tables t JOIN documents d ON d.id = t.document_id
		 WHERE t.table_uid = ?`, tableUID,
	).Scan(&m.TableUID, &m.DocumentID, &m.SectionID, &m.PageNumber,
		&m.TableIndexOnPage, &m.TableLabel, &m.Title,
		&m.Filename, &m.DisplayName, &m.DocType, &m.ProcedureID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table meta: %w", err)
	}
	return &m, nil
}

// InsertRow inserts one rendered table row.
func (r *TableRepo) InsertRow(ctx context.Context, row *TableRowRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO table_rows (table_uid, row_index, row_text) VALUES (?, ?, ?)`,
		row.TableUID, row.RowIndex, row.RowText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert table row: %w", err)
	}
	return nil
}

// Rows returns up to limit rows starting at offset, ordered by row_index.
func (r *TableRepo) Rows(ctx context.Context, tableUID string, limit, offset int) ([]TableRowRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_uid, row_index, row_text FROM table_rows
		 WHERE table_uid = ? ORDER BY row_index LIMIT ? OFFSET ?`,
		tableUID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query table rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []TableRowRecord
	for rows.Next() {
		var rec TableRowRecord
		if err := rows.Scan(&rec.TableUID, &rec.RowIndex, &rec.RowText); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// CountRows returns the total row count for a table.
func (r *TableRepo) CountRows(ctx context.Context, tableUID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM table_rows WHERE table_uid = ?`, tableUID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count table rows: %w", err)
	}
	return n, nil
}

// InsertCell inserts one structured cell.
func (r *TableRepo) InsertCell(ctx context.Context, cell *TableCellRecord) error {
	var minIdx, maxIdx any
	if cell.HasRowSpan {
		minIdx, maxIdx = cell.RowIndexMin, cell.RowIndexMax
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO table_cells (table_uid, row_num, col_num, cell_text, row_index_min, row_index_max)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cell.TableUID, cell.RowNum, cell.ColNum, cell.CellText, minIdx, maxIdx,
	)
	if err != nil {
		return fmt.Errorf("failed to insert table cell: %w", err)
	}
	return nil
}

// Cells returns all structured cells for a table ordered by row then column.
func (r *TableRepo) Cells(ctx context.Context, tableUID string) ([]TableCellRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_uid, row_num, col_num, cell_text, row_index_min, row_index_max
		 FROM table_cells WHERE table_uid = ? ORDER BY row_num, col_num`,
		tableUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query table cells: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []TableCellRecord
	for rows.Next() {
		var (
			rec          TableCellRecord
			minIdx, maxIdx sql.NullInt64
		)
		if err := rows.Scan(&rec.TableUID, &rec.RowNum, &rec.ColNum, &rec.CellText, &minIdx, &maxIdx); err != nil {
			return nil, fmt.Errorf("failed to scan table cell: %w", err)
		}
		if minIdx.Valid && maxIdx.Valid {
			rec.HasRowSpan = true
			rec.RowIndexMin = int(minIdx.Int64)
			rec.RowIndexMax = int(maxIdx.Int64)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
