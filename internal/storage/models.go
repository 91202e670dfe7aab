package storage

import "time"

// Document represents one ingested specification document.
// Rows are immutable once written; re-ingestion inserts a new row.
type Document struct {
	ID          int64
	Filename    string
	DisplayName string
	DocType     string // standspec, scheduling, mp
	ProcedureID string // set for doc_type=mp, empty otherwise
	FilePath    string
	ContentHash string
	PageCount   int
	IngestedAt  time.Time
}

// Page holds the raw extracted text of one document page.
// Created once at ingestion, never mutated.
type Page struct {
	ID         int64
	DocumentID int64
	PageNumber int
	Text       string
	CharCount  int
}

// Chunk kinds. The toc and front_matter kinds are produced by extraction
// but excluded from section-intent answers.
const (
	KindContent     = "content"
	KindTableRow    = "table_row"
	KindEquation    = "equation"
	KindDefinition  = "definition"
	KindProcedure   = "procedure"
	KindTOC         = "toc"
	KindFrontMatter = "front_matter"
)

// Chunk is the retrievable unit of document text.
type Chunk struct {
	ID            int64
	DocumentID    int64
	ChunkIndex    int
	PageStart     int
	PageEnd       int
	SectionID     string
	Heading       string
	ChunkKind     string
	IsTable       bool
	IsDefinition  bool
	IsProcedure   bool
	EquationScore float64
	TableUID      string // set only for chunk_kind=table_row
	TableRowIndex int    // valid only when TableUID is set
	TableLabel    string
	Text          string
}

// Table is one extracted table with a stable composite identity.
type Table struct {
	TableUID         string
	DocumentID       int64
	SectionID        string
	PageNumber       int
	TableIndexOnPage int
	TableLabel       string
	Title            string
}

// TableRowRecord is one rendered row of an extracted table.
type TableRowRecord struct {
	TableUID string
	RowIndex int
	RowText  string
}

// TableCellRecord is optional structured cell data; a table may have
// rows but no cells.
type TableCellRecord struct {
	TableUID    string
	RowNum      int
	ColNum      int
	CellText    string
	RowIndexMin int
	RowIndexMax int
	HasRowSpan  bool // whether RowIndexMin/Max are populated
}

// ChunkWithDoc is a chunk joined with its document fields, the shape
// consumed by the index builders and the section lookup.
type ChunkWithDoc struct {
	Chunk
	Filename    string
	DisplayName string
	DocType     string
	ProcedureID string
}

// PageWithDoc is a page joined with its document fields.
type PageWithDoc struct {
	Page
	Filename    string
	DisplayName string
	DocType     string
	ProcedureID string
}

// TableMeta is a table joined with its document fields, the shape the
// table projector and answer layer consume.
type TableMeta struct {
	Table
	Filename    string
	DisplayName string
	DocType     string
	ProcedureID string
}
