package answer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"spechub/internal/answer/mocks"
	"spechub/internal/search"
	"spechub/internal/storage"
)

type stubRetriever struct {
	results []search.Result
	err     error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ search.Scope, _ search.Classification, _ int, _ search.Granularity) ([]search.Result, error) {
	return s.results, s.err
}

type stubChunks struct {
	storage.ChunkStore
	bySection []storage.ChunkWithDoc
	err       error
}

func (s *stubChunks) BySection(_ context.Context, _ string) ([]storage.ChunkWithDoc, error) {
	return s.bySection, s.err
}

type stubTables struct {
	storage.TableStore
	meta *storage.TableMeta
	err  error
}

func (s *stubTables) GetMeta(_ context.Context, _ string) (*storage.TableMeta, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.meta, nil
}

func testThresholds() search.Thresholds {
	return search.Thresholds{Strong: 0.55, Medium: 0.35, ClusterMin: 0.2, ClusterCount: 3}
}

func scheduleResults() []search.Result {
	return []search.Result{
		{
			Entry: search.Entry{
				ID: 1, DocumentID: 1, Filename: "standspec.pdf", DisplayName: "Standard Specifications",
				DocType: "standspec", SectionID: "108.02", PageStart: 200, PageEnd: 200, ChunkKind: "content",
				Text: "The baseline schedule shall be submitted within 14 days of award.",
			},
			Score:   0.7,
			Snippet: "The baseline schedule shall be submitted within 14 days of award.",
			OpenURL: "/api/documents/open?filename=standspec.pdf&page=200",
		},
		{
			Entry: search.Entry{
				ID: 2, DocumentID: 1, Filename: "standspec.pdf", DisplayName: "Standard Specifications",
				DocType: "standspec", SectionID: "108.03", PageStart: 201, PageEnd: 201, ChunkKind: "content",
				Text: "Schedule updates are due monthly.",
			},
			Score:   0.6,
			Snippet: "Schedule updates are due monthly.",
			OpenURL: "/api/documents/open?filename=standspec.pdf&page=201",
		},
	}
}

func newTestEngine(t *testing.T, retriever Retriever, chunks storage.ChunkStore, tables storage.TableStore, gen Generator) *Engine {
	t.Helper()
	return NewEngine(retriever, chunks, tables, gen, testThresholds(), 5*time.Second)
}

func TestEngine_Ask_SectionLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No generator expectations: a section lookup must never call the LLM.
	gen := mocks.NewMockGenerator(ctrl)

	chunks := &stubChunks{bySection: []storage.ChunkWithDoc{
		{
			Chunk: storage.Chunk{
				ID: 1, DocumentID: 1, PageStart: 120, PageEnd: 120,
				SectionID: "103.04", ChunkKind: storage.KindContent,
				Text: "The proposal guaranty shall be a bond in the amount of 50 percent of the bid.",
			},
			Filename: "standspec.pdf", DisplayName: "Standard Specifications", DocType: "standspec",
		},
	}}

	engine := newTestEngine(t, &stubRetriever{}, chunks, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "103.04", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Answer != "See the citations panel for Section 103.04." {
		t.Errorf("Ask() answer = %q", resp.Answer)
	}
	if resp.Intent != search.IntentSectionLookup {
		t.Errorf("Ask() intent = %v, want section_lookup", resp.Intent)
	}
	if resp.Confidence != search.ConfidenceStrong {
		t.Errorf("Ask() confidence = %v, want strong", resp.Confidence)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("Ask() citations = %d, want 1", len(resp.Citations))
	}
	if resp.Citations[0].SectionID != "103.04" {
		t.Errorf("Ask() citation section = %q, want 103.04", resp.Citations[0].SectionID)
	}
}

func TestEngine_Ask_SectionLookup_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := newTestEngine(t, &stubRetriever{}, &stubChunks{}, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "999.99", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Confidence != search.ConfidenceWeak {
		t.Errorf("Ask() confidence = %v, want weak", resp.Confidence)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("Ask() citations = %d, want 0", len(resp.Citations))
	}
	if resp.Answer != "See the citations panel for Section 999.99." {
		t.Errorf("Ask() answer = %q", resp.Answer)
	}
}

func TestEngine_Ask_SectionLookup_ScopeFiltersCitation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chunks := &stubChunks{bySection: []storage.ChunkWithDoc{
		{
			Chunk:    storage.Chunk{ID: 1, DocumentID: 1, SectionID: "103.04", PageStart: 120, Text: "standspec text"},
			Filename: "standspec.pdf", DocType: "standspec",
		},
	}}

	engine := newTestEngine(t, &stubRetriever{}, chunks, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, err := search.ParseScope("scheduling", "")
	if err != nil {
		t.Fatalf("ParseScope() error = %v", err)
	}

	resp, err := engine.Ask(context.Background(), Request{Query: "103.04", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("Ask() citations = %d, want 0 for out-of-scope section", len(resp.Citations))
	}
	if resp.Confidence != search.ConfidenceWeak {
		t.Errorf("Ask() confidence = %v, want weak", resp.Confidence)
	}
}

func TestEngine_Ask_SectionLookup_EscapesFilename(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chunks := &stubChunks{bySection: []storage.ChunkWithDoc{
		{
			Chunk:    storage.Chunk{ID: 1, DocumentID: 2, SectionID: "401.02", PageStart: 5, Text: "procedure text"},
			Filename: "mp 7 ride quality.pdf", DocType: "mp", ProcedureID: "MP-7",
		},
	}}

	engine := newTestEngine(t, &stubRetriever{}, chunks, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "401.02", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("Ask() citations = %d, want 1", len(resp.Citations))
	}
	want := "/api/documents/open?filename=mp+7+ride+quality.pdf&page=5"
	if resp.Citations[0].OpenURL != want {
		t.Errorf("Ask() citation open URL = %q, want %q", resp.Citations[0].OpenURL, want)
	}
}

func TestEngine_Ask_SynthesizedAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The baseline schedule must be submitted within 14 days of award [1].", nil)

	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "when is the baseline schedule due", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Degraded {
		t.Error("Ask() degraded = true, want false")
	}
	if resp.Answer != "The baseline schedule must be submitted within 14 days of award." {
		t.Errorf("Ask() answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 2 {
		t.Errorf("Ask() citations = %d, want 2", len(resp.Citations))
	}
	if resp.Confidence != search.ConfidenceStrong {
		t.Errorf("Ask() confidence = %v, want strong", resp.Confidence)
	}
}

func TestEngine_Ask_SourcesOnlyMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No generator expectations: sources_only must never call the LLM.
	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "when is the baseline schedule due", Scope: scope, Mode: ModeSourcesOnly})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != sourcesOnlyAnswer {
		t.Errorf("Ask() answer = %q, want %q", resp.Answer, sourcesOnlyAnswer)
	}
	if len(resp.Citations) == 0 {
		t.Error("Ask() returned no citations in sources_only mode")
	}
}

func TestEngine_Ask_GenerationFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("model endpoint unreachable"))

	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "when is the baseline schedule due", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v, want degraded success", err)
	}
	if !resp.Degraded {
		t.Error("Ask() degraded = false, want true")
	}
	if resp.Answer != "" {
		t.Errorf("Ask() answer = %q, want empty", resp.Answer)
	}
	if len(resp.Citations) != 2 {
		t.Errorf("Ask() citations = %d, want 2 retained", len(resp.Citations))
	}
}

func TestEngine_Ask_UngroundedNumberDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The baseline schedule must be submitted within 21 days of award.", nil)

	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "how many days until the baseline schedule is due", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Degraded {
		t.Error("Ask() degraded = false, want true for a number absent from the sources")
	}
	if resp.Answer != "" {
		t.Errorf("Ask() answer = %q, want empty", resp.Answer)
	}
	if len(resp.Citations) == 0 {
		t.Error("Ask() dropped citations on degrade")
	}
}

func TestEngine_Ask_SubstringNumberNotGrounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// "4" appears inside the sources' "14" but never as its own number
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The baseline schedule must be submitted within 4 days of award.", nil)

	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "how many days until the baseline schedule is due", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Degraded {
		t.Error("Ask() degraded = false, want true when the number only matches a substring")
	}
	if resp.Answer != "" {
		t.Errorf("Ask() answer = %q, want empty", resp.Answer)
	}
}

func TestEngine_Ask_GroundedNumberKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The baseline schedule must be submitted within 14 days of award.", nil)

	engine := newTestEngine(t, &stubRetriever{results: scheduleResults()}, &stubChunks{}, &stubTables{}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "how many days until the baseline schedule is due", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Degraded {
		t.Error("Ask() degraded = true, want false for a grounded number")
	}
	if resp.Answer == "" {
		t.Error("Ask() answer empty, want synthesized text")
	}
}

func TestEngine_Ask_EmptyResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := newTestEngine(t, &stubRetriever{}, &stubChunks{}, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "something entirely off topic", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "The provided documents do not address this." {
		t.Errorf("Ask() answer = %q", resp.Answer)
	}
	if resp.Confidence != search.ConfidenceWeak {
		t.Errorf("Ask() confidence = %v, want weak", resp.Confidence)
	}
}

func TestEngine_Ask_RetrieverErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := newTestEngine(t, &stubRetriever{err: search.ErrIndexUnavailable}, &stubChunks{}, &stubTables{}, mocks.NewMockGenerator(ctrl))
	scope, _ := search.ParseScope("all", "")

	_, err := engine.Ask(context.Background(), Request{Query: "anything", Scope: scope})
	if !errors.Is(err, search.ErrIndexUnavailable) {
		t.Errorf("Ask() error = %v, want ErrIndexUnavailable", err)
	}
}

func TestEngine_Ask_TableLookupAttachesTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Table 901.03-1 lists the aggregate gradation bands.", nil)

	results := []search.Result{
		{
			Entry: search.Entry{
				ID: 5, DocumentID: 1, Filename: "standspec.pdf", DisplayName: "Standard Specifications",
				DocType: "standspec", PageStart: 540, PageEnd: 540, ChunkKind: storage.KindTableRow,
				TableUID: "tbl-1-p540-1", TableLabel: "Table 901.03-1",
				Text: "No. 57 | 100 | 95-100 | 25-60",
			},
			Score: 0.8,
		},
	}
	tables := &stubTables{meta: &storage.TableMeta{
		Table: storage.Table{
			TableUID: "tbl-1-p540-1", TableLabel: "Table 901.03-1",
			Title: "Grading Requirements for Coarse Aggregates", PageNumber: 540,
		},
		Filename: "standspec.pdf", DisplayName: "Standard Specifications", DocType: "standspec",
	}}

	engine := newTestEngine(t, &stubRetriever{results: results}, &stubChunks{}, tables, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "show me Table 901.03-1", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Intent != search.IntentTableLookup {
		t.Errorf("Ask() intent = %v, want table_lookup", resp.Intent)
	}
	if resp.Table == nil {
		t.Fatal("Ask() table = nil, want resolved table")
	}
	if resp.Table.TableUID != "tbl-1-p540-1" {
		t.Errorf("Ask() table uid = %q", resp.Table.TableUID)
	}
	if resp.Table.OpenURL == "" {
		t.Error("Ask() table open URL empty")
	}
}

func TestEngine_Ask_TableLookupMissingMetaSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The gradation table is shown on page 540.", nil)

	results := []search.Result{
		{
			Entry: search.Entry{
				ID: 5, DocumentID: 1, DocType: "standspec", PageStart: 540,
				ChunkKind: storage.KindTableRow, TableUID: "tbl-1-p540-9",
				Text: "No. 57 | 100 | 95-100",
			},
			Score: 0.8,
		},
	}

	engine := newTestEngine(t, &stubRetriever{results: results}, &stubChunks{}, &stubTables{err: storage.ErrNotFound}, gen)
	scope, _ := search.ParseScope("all", "")

	resp, err := engine.Ask(context.Background(), Request{Query: "which table lists aggregate gradation", Scope: scope})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Table != nil {
		t.Errorf("Ask() table = %+v, want nil when the record is missing", resp.Table)
	}
	if len(resp.Citations) == 0 {
		t.Error("Ask() citations empty, want the table-row hit retained")
	}
}
