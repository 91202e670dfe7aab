package answer

import (
	"context"

	"spechub/internal/llm"
	"spechub/internal/search"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks spechub/internal/answer Generator

// Generator is the generation call behind answer synthesis. The LLM
// client implements it; tests mock it.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Retriever is the retrieval dependency of the engine.
type Retriever interface {
	Retrieve(ctx context.Context, query string, scope search.Scope, cls search.Classification, k int, g search.Granularity) ([]search.Result, error)
}

// Mode selects between a synthesized answer and citations only.
type Mode string

const (
	ModeAnswer      Mode = "answer"
	ModeSourcesOnly Mode = "sources_only"
)

// Request is one question against the corpus.
type Request struct {
	Query string
	Scope search.Scope
	K     int
	Mode  Mode
}

// Citation points at the passage backing an answer.
type Citation struct {
	DocumentID  int64   `json:"document_id"`
	Filename    string  `json:"filename"`
	DisplayName string  `json:"display_name"`
	DocType     string  `json:"doc_type"`
	ProcedureID string  `json:"procedure_id,omitempty"`
	PageStart   int     `json:"page_start"`
	PageEnd     int     `json:"page_end"`
	SectionID   string  `json:"section_id,omitempty"`
	Heading     string  `json:"heading,omitempty"`
	ChunkKind   string  `json:"chunk_kind"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	OpenURL     string  `json:"open_url"`
}

// TableRef is attached when a table lookup resolved to a stored table.
type TableRef struct {
	TableUID   string `json:"table_uid"`
	TableLabel string `json:"table_label"`
	Title      string `json:"title,omitempty"`
	PageNumber int    `json:"page_number"`
	OpenURL    string `json:"open_url"`
}

// Response is the synthesized answer with its citation contract
// satisfied: every claim traces to a citation, and a degraded response
// keeps its citations even when the answer text is empty.
type Response struct {
	Query      string            `json:"query"`
	Scope      string            `json:"scope"`
	Intent     search.Intent     `json:"intent"`
	Confidence search.Confidence `json:"confidence"`
	Answer     string            `json:"answer"`
	Degraded   bool              `json:"degraded,omitempty"`
	Citations  []Citation        `json:"citations"`
	Table      *TableRef         `json:"table,omitempty"`
}
