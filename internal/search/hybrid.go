package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"

	"spechub/internal/contextutil"
	"spechub/internal/vectorstore"
)

// Embedder turns query text into vectors. Implemented by the embeddings
// client; mocked in tests.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options carries the tuned retrieval parameters. All values come from
// config; both weights must be positive.
type Options struct {
	LexicalWeight    float64
	VectorWeight     float64
	TieEpsilon       float64
	TableBoost       float64
	EquationBoost    float64
	EquationScoreMin float64
	SnippetLength    int
}

// Retriever fuses lexical and vector rankings into one ranked list.
type Retriever struct {
	snapshots       *Snapshots
	vectors         vectorstore.VectorStore
	embedder        Embedder
	pageCollection  string
	chunkCollection string
	opts            Options
	logger          *slog.Logger
}

// NewRetriever creates a hybrid retriever over the given snapshot
// holder and vector store.
func NewRetriever(
	snapshots *Snapshots,
	vectors vectorstore.VectorStore,
	embedder Embedder,
	pageCollection string,
	chunkCollection string,
	opts Options,
) *Retriever {
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = 360
	}
	return &Retriever{
		snapshots:       snapshots,
		vectors:         vectors,
		embedder:        embedder,
		pageCollection:  pageCollection,
		chunkCollection: chunkCollection,
		opts:            opts,
		logger:          slog.Default(),
	}
}

type fusedScores struct {
	lexical float64
	vector  float64
	hasLex  bool
	hasVec  bool
}

// Retrieve runs both rankers concurrently, fuses their normalized
// scores by weighted sum, applies intent boosts, and returns the top k
// results in deterministic order. One ranker failing degrades to the
// other; ErrIndexUnavailable is returned only when both failed.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope Scope, cls Classification, k int, g Granularity) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		k = 8
	}
	if k > 50 {
		k = 50
	}
	poolK := 8 * k
	if poolK < 50 {
		poolK = 50
	}

	snapshot := r.snapshots.Load(g)

	var (
		wg       sync.WaitGroup
		lexCands []Candidate
		lexErr   error
		vecCands []vectorstore.SearchResult
		vecErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if snapshot == nil || snapshot.Size() == 0 {
			lexErr = fmt.Errorf("lexical snapshot not built for granularity %s", g)
			return
		}
		lexCands = snapshot.Search(query, scope, poolK)
	}()
	go func() {
		defer wg.Done()
		vecCands, vecErr = r.searchVectors(ctx, query, scope, poolK, g)
	}()
	wg.Wait()

	if lexErr != nil && vecErr != nil {
		logger.ErrorContext(ctx, "both retrieval signals failed",
			"lexical_error", lexErr, "vector_error", vecErr)
		return nil, fmt.Errorf("%w: lexical: %v; vector: %v", ErrIndexUnavailable, lexErr, vecErr)
	}
	if lexErr != nil {
		logger.WarnContext(ctx, "lexical ranker failed, continuing with vector only", "error", lexErr)
	}
	if vecErr != nil {
		logger.WarnContext(ctx, "vector ranker failed, continuing with lexical only", "error", vecErr)
	}

	fused := make(map[int64]*fusedScores)
	for _, c := range lexCands {
		fused[c.ID] = &fusedScores{lexical: c.Score, hasLex: true}
	}
	for _, v := range vecCands {
		f, ok := fused[v.PointID]
		if !ok {
			f = &fusedScores{}
			fused[v.PointID] = f
		}
		f.vector = float64(v.Score)
		f.hasVec = true
	}
	if len(fused) == 0 {
		return []Result{}, nil
	}

	normalizeLexical(fused)
	normalizeVector(fused)

	queryTerms := Tokenize(query)
	results := make([]Result, 0, len(fused))
	for id, f := range fused {
		entry, ok := r.lookupEntry(snapshot, id, vecCands)
		if !ok {
			logger.WarnContext(ctx, "retrieval hit missing from catalog, skipping", "id", id)
			continue
		}
		if !scope.Matches(entry.DocType, entry.ProcedureID) {
			continue
		}

		score := r.opts.LexicalWeight*f.lexical + r.opts.VectorWeight*f.vector
		score *= r.boost(cls, entry)

		results = append(results, Result{
			Entry:        *entry,
			Score:        score,
			LexicalScore: f.lexical,
			VectorScore:  f.vector,
			Snippet:      makeSnippet(entry.Text, queryTerms, r.opts.SnippetLength),
			OpenURL:      OpenDocumentURL(entry.Filename, entry.PageStart),
		})
	}

	r.sortResults(results)

	if len(results) > k {
		results = results[:k]
	}

	logger.InfoContext(ctx, "hybrid retrieval completed",
		"query", query,
		"scope", scope.Name,
		"intent", cls.Intent,
		"granularity", g,
		"lexical_candidates", len(lexCands),
		"vector_candidates", len(vecCands),
		"results", len(results),
	)
	return results, nil
}

func (r *Retriever) searchVectors(ctx context.Context, query string, scope Scope, poolK int, g Granularity) ([]vectorstore.SearchResult, error) {
	embeddings, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	collection := r.chunkCollection
	if g == GranularityPage {
		collection = r.pageCollection
	}
	return r.vectors.Search(ctx, collection, embeddings[0], poolK, scopeFilters(scope))
}

// scopeFilters translates a scope into vector store payload filters so
// out-of-scope points never leave the store.
func scopeFilters(scope Scope) map[string]any {
	switch scope.Name {
	case ScopeStandSpec, ScopeScheduling:
		return map[string]any{"doc_type": scope.Name}
	case ScopeMP:
		return map[string]any{"doc_type": "mp"}
	case ScopeMPOnly:
		return map[string]any{"doc_type": "mp", "procedure_id": scope.ProcedureID}
	default:
		return nil
	}
}

// lookupEntry resolves metadata for a hit. The lexical snapshot is the
// authoritative catalog; when it is unavailable the vector payload is
// enough to build a citation.
func (r *Retriever) lookupEntry(snapshot *Index, id int64, vecCands []vectorstore.SearchResult) (*Entry, bool) {
	if snapshot != nil {
		if e, ok := snapshot.Lookup(id); ok {
			return e, true
		}
	}
	for _, v := range vecCands {
		if v.PointID == id {
			e := entryFromMeta(id, v.Meta)
			return &e, true
		}
	}
	return nil, false
}

func entryFromMeta(id int64, meta map[string]any) Entry {
	str := func(key string) string {
		s, _ := meta[key].(string)
		return s
	}
	num := func(key string) float64 {
		switch v := meta[key].(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		default:
			return 0
		}
	}
	return Entry{
		ID:            id,
		DocumentID:    int64(num("document_id")),
		Filename:      str("filename"),
		DisplayName:   str("display_name"),
		DocType:       str("doc_type"),
		ProcedureID:   str("procedure_id"),
		ChunkIndex:    int(num("chunk_index")),
		PageStart:     int(num("page_start")),
		PageEnd:       int(num("page_end")),
		SectionID:     str("section_id"),
		Heading:       str("heading"),
		ChunkKind:     str("chunk_kind"),
		TableUID:      str("table_uid"),
		TableLabel:    str("table_label"),
		EquationScore: num("equation_score"),
		Text:          str("text"),
	}
}

// normalizeLexical min-max normalizes the lexical side of the pool.
// A degenerate pool (single score value) maps to 1.0.
func normalizeLexical(fused map[int64]*fusedScores) {
	minMax(fused, func(f *fusedScores) (float64, bool) { return f.lexical, f.hasLex },
		func(f *fusedScores, v float64) { f.lexical = v })
}

func normalizeVector(fused map[int64]*fusedScores) {
	minMax(fused, func(f *fusedScores) (float64, bool) { return f.vector, f.hasVec },
		func(f *fusedScores, v float64) { f.vector = v })
}

func minMax(fused map[int64]*fusedScores, get func(*fusedScores) (float64, bool), set func(*fusedScores, float64)) {
	first := true
	var lo, hi float64
	for _, f := range fused {
		v, ok := get(f)
		if !ok {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if first {
		return
	}
	span := hi - lo
	for _, f := range fused {
		v, ok := get(f)
		if !ok {
			continue
		}
		if span == 0 {
			set(f, 1.0)
			continue
		}
		set(f, (v-lo)/span)
	}
}

// boost returns the multiplicative intent boost for an entry. Boosts
// reorder candidates but never exclude them.
func (r *Retriever) boost(cls Classification, e *Entry) float64 {
	switch cls.Intent {
	case IntentTableLookup:
		if e.ChunkKind != "table_row" {
			return 1.0
		}
		b := r.opts.TableBoost
		if cls.TableLabel != "" && strings.EqualFold(e.TableLabel, cls.TableLabel) {
			b *= r.opts.TableBoost
		}
		return b
	case IntentEquationLookup:
		if e.ChunkKind == "equation" {
			return r.opts.EquationBoost
		}
		if e.EquationScore >= r.opts.EquationScoreMin {
			// Scale the boost with how equation-like the chunk is.
			return 1 + (r.opts.EquationBoost-1)*e.EquationScore
		}
		return 1.0
	default:
		return 1.0
	}
}

// structuralPriority ranks chunk kinds for near-tie ordering. Structural
// chunks answer questions more directly than running prose.
func structuralPriority(kind string) int {
	switch kind {
	case "definition", "procedure", "equation":
		return 1
	default:
		return 0
	}
}

// sortResults orders by descending fused score quantized into epsilon
// bands, so the comparison is a strict weak ordering and the output
// never depends on the input permutation. Within a band structural
// chunks win, then document id, chunk index, and id.
func (r *Retriever) sortResults(results []Result) {
	eps := r.opts.TieEpsilon
	band := func(s float64) float64 {
		if eps <= 0 {
			return s
		}
		return math.Floor(s / eps)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		ba, bb := band(a.Score), band(b.Score)
		if ba != bb {
			return ba > bb
		}
		pa, pb := structuralPriority(a.ChunkKind), structuralPriority(b.ChunkKind)
		if pa != pb {
			return pa > pb
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.ID < b.ID
	})
}

// OpenDocumentURL builds the viewer link for a document page. Every
// citation and table reference goes through here so filenames are
// always query-escaped.
func OpenDocumentURL(filename string, page int) string {
	return fmt.Sprintf("/api/documents/open?filename=%s&page=%d", url.QueryEscape(filename), page)
}

// makeSnippet re-centers the excerpt on the densest query-term window
// so the citation preview shows the matching passage, not the chunk
// head.
func makeSnippet(text string, queryTerms []string, length int) string {
	text = strings.TrimSpace(text)
	if len(text) <= length {
		return text
	}

	lower := strings.ToLower(text)
	best := 0
	bestHits := -1
	step := length / 2
	if step < 1 {
		step = 1
	}
	for start := 0; start < len(lower); start += step {
		end := start + length
		if end > len(lower) {
			end = len(lower)
		}
		window := lower[start:end]
		hits := 0
		for _, term := range queryTerms {
			if strings.Contains(window, term) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = start
		}
		if end == len(lower) {
			break
		}
	}

	end := best + length
	if end > len(text) {
		end = len(text)
	}
	snippet := strings.TrimSpace(text[best:end])
	if best > 0 {
		snippet = "…" + snippet
	}
	if end < len(text) {
		snippet += "…"
	}
	return snippet
}
