package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"spechub/internal/contextutil"
	"spechub/internal/search"
	"spechub/internal/storage"
	"spechub/internal/vectorstore"
)

// embeddingBatchSize bounds one embeddings API call.
const embeddingBatchSize = 64

// Builder runs the offline index builds. Rebuilds never block readers:
// the lexical build swaps an atomic snapshot and the vector build
// upserts points in place.
type Builder struct {
	docs            storage.DocumentStore
	chunks          storage.ChunkStore
	snapshots       *search.Snapshots
	vectors         vectorstore.VectorStore
	embedder        search.Embedder
	pageCollection  string
	chunkCollection string
	vectorSize      int
	logger          *slog.Logger
}

// NewBuilder creates an index builder.
func NewBuilder(
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	snapshots *search.Snapshots,
	vectors vectorstore.VectorStore,
	embedder search.Embedder,
	pageCollection string,
	chunkCollection string,
	vectorSize int,
) *Builder {
	return &Builder{
		docs:            docs,
		chunks:          chunks,
		snapshots:       snapshots,
		vectors:         vectors,
		embedder:        embedder,
		pageCollection:  pageCollection,
		chunkCollection: chunkCollection,
		vectorSize:      vectorSize,
		logger:          slog.Default(),
	}
}

// BuildLexical constructs a fresh BM25 index for a granularity from the
// store and publishes it. Readers keep the previous snapshot until the
// swap.
func (b *Builder) BuildLexical(ctx context.Context, g search.Granularity) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := b.loadEntries(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to load %s entries: %w", g, err)
	}

	index := search.BuildIndex(entries)
	b.snapshots.Swap(g, index)

	logger.InfoContext(ctx, "lexical index built", "granularity", g, "entries", index.Size())
	return nil
}

// BuildVectors embeds all units of a granularity in batches and upserts
// them into the matching collection. Point ids are store row ids, so a
// re-run overwrites stale points instead of duplicating them.
func (b *Builder) BuildVectors(ctx context.Context, g search.Granularity) error {
	logger := contextutil.LoggerFromContext(ctx)

	collection := b.chunkCollection
	if g == search.GranularityPage {
		collection = b.pageCollection
	}
	if err := b.vectors.EnsureCollection(ctx, collection, b.vectorSize); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", collection, err)
	}

	entries, err := b.loadEntries(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to load %s entries: %w", g, err)
	}

	var upserted int
	for start := 0; start < len(entries); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Text
		}
		embeddings, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, e := range batch {
			points[i] = vectorstore.Point{
				ID:   e.ID,
				Vec:  embeddings[i],
				Meta: pointMeta(e),
			}
		}
		if err := b.vectors.Upsert(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch at %d: %w", start, err)
		}
		upserted += len(points)
	}

	logger.InfoContext(ctx, "vector index built", "granularity", g, "collection", collection, "points", upserted)
	return nil
}

func (b *Builder) loadEntries(ctx context.Context, g search.Granularity) ([]search.Entry, error) {
	if g == search.GranularityPage {
		pages, err := b.docs.ListPages(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]search.Entry, 0, len(pages))
		for i := range pages {
			p := &pages[i]
			if p.Text == "" {
				continue
			}
			entries = append(entries, search.Entry{
				ID:          p.ID,
				DocumentID:  p.DocumentID,
				Filename:    p.Filename,
				DisplayName: p.DisplayName,
				DocType:     p.DocType,
				ProcedureID: p.ProcedureID,
				ChunkIndex:  p.PageNumber,
				PageStart:   p.PageNumber,
				PageEnd:     p.PageNumber,
				ChunkKind:   "content",
				Text:        p.Text,
			})
		}
		return entries, nil
	}

	chunks, err := b.chunks.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]search.Entry, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.Text == "" {
			continue
		}
		entries = append(entries, search.Entry{
			ID:            c.ID,
			DocumentID:    c.DocumentID,
			Filename:      c.Filename,
			DisplayName:   c.DisplayName,
			DocType:       c.DocType,
			ProcedureID:   c.ProcedureID,
			ChunkIndex:    c.ChunkIndex,
			PageStart:     c.PageStart,
			PageEnd:       c.PageEnd,
			SectionID:     c.SectionID,
			Heading:       c.Heading,
			ChunkKind:     c.ChunkKind,
			TableUID:      c.TableUID,
			TableLabel:    c.TableLabel,
			EquationScore: c.EquationScore,
			Text:          c.Text,
		})
	}
	return entries, nil
}

// pointMeta mirrors the entry into the vector payload so scope filters
// push down and a hit can be cited even without the lexical catalog.
func pointMeta(e search.Entry) map[string]any {
	return map[string]any{
		"document_id":    e.DocumentID,
		"filename":       e.Filename,
		"display_name":   e.DisplayName,
		"doc_type":       e.DocType,
		"procedure_id":   e.ProcedureID,
		"chunk_index":    e.ChunkIndex,
		"page_start":     e.PageStart,
		"page_end":       e.PageEnd,
		"section_id":     e.SectionID,
		"heading":        e.Heading,
		"chunk_kind":     e.ChunkKind,
		"table_uid":      e.TableUID,
		"table_label":    e.TableLabel,
		"equation_score": e.EquationScore,
		"text":           e.Text,
	}
}
