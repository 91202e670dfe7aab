package search

// Granularity selects which index a retrieval runs against.
type Granularity string

const (
	GranularityPage  Granularity = "page"
	GranularityChunk Granularity = "chunk"
)

// Entry is one indexable unit (a page or a chunk) with the metadata
// needed for scope filtering and citation building.
type Entry struct {
	ID            int64
	DocumentID    int64
	Filename      string
	DisplayName   string
	DocType       string
	ProcedureID   string
	ChunkIndex    int
	PageStart     int
	PageEnd       int
	SectionID     string
	Heading       string
	ChunkKind     string
	TableUID      string
	TableLabel    string
	EquationScore float64
	Text          string
}

// Result is one ranked retrieval hit with citation metadata attached.
type Result struct {
	Entry
	Score        float64
	LexicalScore float64
	VectorScore  float64
	Snippet      string
	OpenURL      string
}
