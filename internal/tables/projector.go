package tables

import (
	"context"
	"errors"
	"fmt"

	"spechub/internal/search"
	"spechub/internal/storage"
)

// ErrUnknownTable is returned for a table uid with no stored table.
var ErrUnknownTable = errors.New("unknown table")

// Row limits for paginated projection. Clients asking for more than
// maxRowLimit rows per page get maxRowLimit.
const (
	defaultRowLimit = 25
	maxRowLimit     = 80
)

// Projector serves read-only views of stored tables.
type Projector struct {
	store storage.TableStore
}

// NewProjector creates a table projector over the given store.
func NewProjector(store storage.TableStore) *Projector {
	return &Projector{store: store}
}

// Meta is the table header returned to clients.
type Meta struct {
	TableUID    string `json:"table_uid"`
	DocumentID  int64  `json:"document_id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	SectionID   string `json:"section_id,omitempty"`
	PageNumber  int    `json:"page_number"`
	TableLabel  string `json:"table_label"`
	Title       string `json:"title,omitempty"`
	OpenURL     string `json:"open_url"`
}

// Row is one rendered table row.
type Row struct {
	RowIndex int    `json:"row_index"`
	Text     string `json:"text"`
}

// CellGrid is the structured cell view: a dense row-major grid. Present
// only for tables that were extracted with cell structure.
type CellGrid struct {
	RowCount int        `json:"row_count"`
	ColCount int        `json:"col_count"`
	Cells    [][]string `json:"cells"`
}

// RowsPage is one page of a table's rows. Total always reflects the
// full row count regardless of the requested window.
type RowsPage struct {
	Meta       Meta      `json:"meta"`
	Rows       []Row     `json:"rows"`
	Total      int       `json:"total"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
	NextOffset *int      `json:"next_offset,omitempty"`
	Cells      *CellGrid `json:"cells,omitempty"`
}

// GetMeta returns the table header for a uid.
func (p *Projector) GetMeta(ctx context.Context, tableUID string) (*Meta, error) {
	stored, err := p.store.GetMeta(ctx, tableUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableUID)
		}
		return nil, err
	}
	meta := toMeta(stored)
	return &meta, nil
}

// Rows returns one page of rows ordered by row index. An offset at or
// past the end yields an empty page, not an error; the caller can still
// read Total. Rows at offsets [0,L), [L,2L), [2L,...) partition the
// table with no overlap.
func (p *Projector) Rows(ctx context.Context, tableUID string, limit, offset int, includeCells bool) (*RowsPage, error) {
	stored, err := p.store.GetMeta(ctx, tableUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableUID)
		}
		return nil, err
	}

	if limit <= 0 {
		limit = defaultRowLimit
	}
	if limit > maxRowLimit {
		limit = maxRowLimit
	}
	if offset < 0 {
		offset = 0
	}

	total, err := p.store.CountRows(ctx, tableUID)
	if err != nil {
		return nil, err
	}

	records, err := p.store.Rows(ctx, tableUID, limit, offset)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{RowIndex: rec.RowIndex, Text: rec.RowText})
	}

	page := &RowsPage{
		Meta:   toMeta(stored),
		Rows:   rows,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
	if next := offset + len(rows); len(rows) > 0 && next < total {
		page.NextOffset = &next
	}

	if includeCells {
		grid, err := p.cellGrid(ctx, tableUID)
		if err != nil {
			return nil, err
		}
		page.Cells = grid
	}
	return page, nil
}

// Cells returns the structured cell grid for a table, or nil when the
// table has rows but no cell data.
func (p *Projector) Cells(ctx context.Context, tableUID string) (*CellGrid, error) {
	if _, err := p.store.GetMeta(ctx, tableUID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableUID)
		}
		return nil, err
	}
	return p.cellGrid(ctx, tableUID)
}

func (p *Projector) cellGrid(ctx context.Context, tableUID string) (*CellGrid, error) {
	cells, err := p.store.Cells(ctx, tableUID)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}

	var rowCount, colCount int
	for _, c := range cells {
		if c.RowNum+1 > rowCount {
			rowCount = c.RowNum + 1
		}
		if c.ColNum+1 > colCount {
			colCount = c.ColNum + 1
		}
	}

	grid := make([][]string, rowCount)
	for i := range grid {
		grid[i] = make([]string, colCount)
	}
	for _, c := range cells {
		grid[c.RowNum][c.ColNum] = c.CellText
	}

	return &CellGrid{RowCount: rowCount, ColCount: colCount, Cells: grid}, nil
}

func toMeta(stored *storage.TableMeta) Meta {
	return Meta{
		TableUID:    stored.TableUID,
		DocumentID:  stored.DocumentID,
		DisplayName: stored.DisplayName,
		Filename:    stored.Filename,
		SectionID:   stored.SectionID,
		PageNumber:  stored.PageNumber,
		TableLabel:  stored.TableLabel,
		Title:       stored.Title,
		OpenURL:     search.OpenDocumentURL(stored.Filename, stored.PageNumber),
	}
}
