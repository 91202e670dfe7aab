package storage

import (
	"context"
	"errors"
	"testing"
)

func seedTable(t *testing.T, f *testDB, rowCount int) string {
	t.Helper()

	docID := f.insertDocument("standspec", "")
	uid := TableUID(docID, 712, 0)
	err := f.tables.Insert(context.Background(), &Table{
		TableUID:         uid,
		DocumentID:       docID,
		SectionID:        "901.03",
		PageNumber:       712,
		TableIndexOnPage: 0,
		TableLabel:       "Table 901.03-1",
		Title:            "Aggregate Gradation Requirements",
	})
	if err != nil {
		t.Fatalf("Insert(table) error = %v", err)
	}

	for i := 0; i < rowCount; i++ {
		err := f.tables.InsertRow(context.Background(), &TableRowRecord{
			TableUID: uid,
			RowIndex: i,
			RowText:  "row " + string(rune('a'+i)),
		})
		if err != nil {
			t.Fatalf("InsertRow() error = %v", err)
		}
	}
	return uid
}

func TestTableRepo_GetMeta(t *testing.T) {
	f := newTestDB(t)
	uid := seedTable(t, f, 0)

	meta, err := f.tables.GetMeta(context.Background(), uid)
	if err != nil {
		t.Fatalf("GetMeta() error = %v", err)
	}
	if meta.TableLabel != "Table 901.03-1" {
		t.Errorf("GetMeta() TableLabel = %v, want Table 901.03-1", meta.TableLabel)
	}
	if meta.PageNumber != 712 {
		t.Errorf("GetMeta() PageNumber = %v, want 712", meta.PageNumber)
	}
	if meta.DocType != "standspec" {
		t.Errorf("GetMeta() DocType = %v, want standspec", meta.DocType)
	}
}

func TestTableRepo_GetMeta_NotFound(t *testing.T) {
	f := newTestDB(t)

	_, err := f.tables.GetMeta(context.Background(), "tbl-9-p1-0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMeta() error = %v, want ErrNotFound", err)
	}
}

func TestTableRepo_Rows_Pagination(t *testing.T) {
	f := newTestDB(t)
	uid := seedTable(t, f, 5)

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantCount  int
		wantFirst  int
	}{
		{name: "first page", limit: 2, offset: 0, wantCount: 2, wantFirst: 0},
		{name: "second page", limit: 2, offset: 2, wantCount: 2, wantFirst: 2},
		{name: "last partial page", limit: 2, offset: 4, wantCount: 1, wantFirst: 4},
		{name: "offset past end", limit: 2, offset: 10, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.tables.Rows(context.Background(), uid, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("Rows() error = %v", err)
			}
			if len(rows) != tt.wantCount {
				t.Fatalf("Rows() returned %d rows, want %d", len(rows), tt.wantCount)
			}
			if tt.wantCount > 0 && rows[0].RowIndex != tt.wantFirst {
				t.Errorf("Rows()[0].RowIndex = %d, want %d", rows[0].RowIndex, tt.wantFirst)
			}
		})
	}

	total, err := f.tables.CountRows(context.Background(), uid)
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if total != 5 {
		t.Errorf("CountRows() = %d, want 5", total)
	}
}

func TestTableRepo_Cells(t *testing.T) {
	f := newTestDB(t)
	uid := seedTable(t, f, 2)

	cells := []TableCellRecord{
		{TableUID: uid, RowNum: 0, ColNum: 1, CellText: "Percent Passing"},
		{TableUID: uid, RowNum: 0, ColNum: 0, CellText: "Sieve Size"},
		{TableUID: uid, RowNum: 1, ColNum: 0, CellText: "No. 4", HasRowSpan: true, RowIndexMin: 0, RowIndexMax: 1},
		{TableUID: uid, RowNum: 1, ColNum: 1, CellText: "95-100"},
	}
	for i := range cells {
		if err := f.tables.InsertCell(context.Background(), &cells[i]); err != nil {
			t.Fatalf("InsertCell() error = %v", err)
		}
	}

	got, err := f.tables.Cells(context.Background(), uid)
	if err != nil {
		t.Fatalf("Cells() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Cells() returned %d cells, want 4", len(got))
	}

	// Ordered by row then column
	if got[0].CellText != "Sieve Size" || got[1].CellText != "Percent Passing" {
		t.Errorf("Cells() not ordered by row, col: %v, %v", got[0].CellText, got[1].CellText)
	}
	if !got[2].HasRowSpan || got[2].RowIndexMin != 0 || got[2].RowIndexMax != 1 {
		t.Errorf("Cells() row span not round-tripped: %+v", got[2])
	}
	if got[3].HasRowSpan {
		t.Errorf("Cells() HasRowSpan = true for cell without span")
	}
}

func TestTableRepo_Cells_EmptyForRowOnlyTable(t *testing.T) {
	f := newTestDB(t)
	uid := seedTable(t, f, 3)

	got, err := f.tables.Cells(context.Background(), uid)
	if err != nil {
		t.Fatalf("Cells() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Cells() returned %d cells for row-only table, want 0", len(got))
	}
}
