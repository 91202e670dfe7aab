package storage

import (
	"context"
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *testDB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := tmpDir + "/test.db"

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return &testDB{t: t, docs: NewDocumentRepo(db), chunks: NewChunkRepo(db), tables: NewTableRepo(db)}
}

type testDB struct {
	t      *testing.T
	docs   *DocumentRepo
	chunks *ChunkRepo
	tables *TableRepo
}

func (f *testDB) insertDocument(docType, procedureID string) int64 {
	f.t.Helper()
	id, err := f.docs.Insert(context.Background(), &Document{
		Filename:    "doc-" + docType + procedureID + ".pdf",
		DisplayName: "Doc " + docType,
		DocType:     docType,
		ProcedureID: procedureID,
		FilePath:    "/docs/doc-" + docType + procedureID + ".pdf",
		ContentHash: "hash",
		PageCount:   900,
	})
	if err != nil {
		f.t.Fatalf("Insert(document) error = %v", err)
	}
	return id
}

func TestChunkRepo_InsertAndGetByID(t *testing.T) {
	f := newTestDB(t)
	docID := f.insertDocument("standspec", "")

	chunk := &Chunk{
		DocumentID:    docID,
		ChunkIndex:    0,
		PageStart:     120,
		PageEnd:       121,
		SectionID:     "103.04",
		Heading:       "Proposal Guaranty",
		ChunkKind:     KindContent,
		EquationScore: 0,
		Text:          "A proposal guaranty of not less than 50 percent is required.",
	}
	if err := f.chunks.Insert(context.Background(), chunk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if chunk.ID == 0 {
		t.Fatal("Insert() did not set chunk ID")
	}

	got, err := f.chunks.GetByID(context.Background(), chunk.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.SectionID != "103.04" {
		t.Errorf("GetByID() SectionID = %v, want 103.04", got.SectionID)
	}
	if got.DocType != "standspec" {
		t.Errorf("GetByID() DocType = %v, want standspec", got.DocType)
	}
	if got.Text != chunk.Text {
		t.Errorf("GetByID() Text = %v, want %v", got.Text, chunk.Text)
	}
}

func TestChunkRepo_GetByID_NotFound(t *testing.T) {
	f := newTestDB(t)

	_, err := f.chunks.GetByID(context.Background(), 12345)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_BySection(t *testing.T) {
	f := newTestDB(t)
	docID := f.insertDocument("standspec", "")

	seed := []Chunk{
		{DocumentID: docID, ChunkIndex: 0, PageStart: 1, PageEnd: 1, SectionID: "103.04", ChunkKind: KindTOC, Text: "103.04 Proposal Guaranty ... 120"},
		{DocumentID: docID, ChunkIndex: 1, PageStart: 120, PageEnd: 120, SectionID: "103.04", ChunkKind: KindContent, Text: "Body text for 103.04."},
		{DocumentID: docID, ChunkIndex: 2, PageStart: 121, PageEnd: 121, SectionID: "103.05", ChunkKind: KindContent, Text: "Body text for 103.05."},
		{DocumentID: docID, ChunkIndex: 3, PageStart: 2, PageEnd: 2, SectionID: "103.04", ChunkKind: KindFrontMatter, Text: "Front matter mention."},
	}
	for i := range seed {
		if err := f.chunks.Insert(context.Background(), &seed[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := f.chunks.BySection(context.Background(), "103.04")
	if err != nil {
		t.Fatalf("BySection() error = %v", err)
	}

	// TOC and front-matter chunks must not surface in section lookups
	if len(got) != 1 {
		t.Fatalf("BySection() returned %d chunks, want 1", len(got))
	}
	if got[0].ChunkIndex != 1 {
		t.Errorf("BySection() ChunkIndex = %d, want 1", got[0].ChunkIndex)
	}
}

func TestChunkRepo_BySection_ExactMatchOnly(t *testing.T) {
	f := newTestDB(t)
	docID := f.insertDocument("standspec", "")

	seed := []Chunk{
		{DocumentID: docID, ChunkIndex: 0, PageStart: 120, PageEnd: 120, SectionID: "103.04", ChunkKind: KindContent, Text: "Parent section."},
		{DocumentID: docID, ChunkIndex: 1, PageStart: 121, PageEnd: 121, SectionID: "103.04.01", ChunkKind: KindContent, Text: "Child section."},
	}
	for i := range seed {
		if err := f.chunks.Insert(context.Background(), &seed[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := f.chunks.BySection(context.Background(), "103.04")
	if err != nil {
		t.Fatalf("BySection() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("BySection() returned %d chunks, want 1 (no prefix matches)", len(got))
	}
	if got[0].SectionID != "103.04" {
		t.Errorf("BySection() SectionID = %v, want 103.04", got[0].SectionID)
	}
}

func TestChunkRepo_ListAll_Ordering(t *testing.T) {
	f := newTestDB(t)
	docA := f.insertDocument("standspec", "")
	docB := f.insertDocument("mp", "MP-7")

	// Insert out of order across documents
	seed := []Chunk{
		{DocumentID: docB, ChunkIndex: 1, PageStart: 3, PageEnd: 3, ChunkKind: KindContent, Text: "b1"},
		{DocumentID: docA, ChunkIndex: 0, PageStart: 1, PageEnd: 1, ChunkKind: KindContent, Text: "a0"},
		{DocumentID: docB, ChunkIndex: 0, PageStart: 2, PageEnd: 2, ChunkKind: KindContent, Text: "b0"},
	}
	for i := range seed {
		if err := f.chunks.Insert(context.Background(), &seed[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := f.chunks.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	wantTexts := []string{"a0", "b0", "b1"}
	if len(got) != len(wantTexts) {
		t.Fatalf("ListAll() returned %d chunks, want %d", len(got), len(wantTexts))
	}
	for i, want := range wantTexts {
		if got[i].Text != want {
			t.Errorf("ListAll()[%d].Text = %v, want %v", i, got[i].Text, want)
		}
	}
	if got[1].ProcedureID != "MP-7" {
		t.Errorf("ListAll() ProcedureID = %v, want MP-7", got[1].ProcedureID)
	}
}

func TestChunkRepo_DeleteByDocument(t *testing.T) {
	f := newTestDB(t)
	docID := f.insertDocument("scheduling", "")

	for i := 0; i < 3; i++ {
		c := Chunk{DocumentID: docID, ChunkIndex: i, PageStart: i + 1, PageEnd: i + 1, ChunkKind: KindContent, Text: "t"}
		if err := f.chunks.Insert(context.Background(), &c); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	if err := f.chunks.DeleteByDocument(context.Background(), docID); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}

	got, err := f.chunks.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("DeleteByDocument() left %d chunks, want 0", len(got))
	}
}
