package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"spechub/internal/contextutil"
	"spechub/internal/llm"
	"spechub/internal/search"
	"spechub/internal/storage"
)

// Engine turns a question into a grounded answer with citations.
type Engine struct {
	retriever    Retriever
	chunks       storage.ChunkStore
	tables       storage.TableStore
	generator    Generator
	thresholds   search.Thresholds
	genTimeout   time.Duration
	maxCitations int
	contextSize  int
	logger       *slog.Logger
}

// NewEngine creates an answer engine.
func NewEngine(
	retriever Retriever,
	chunks storage.ChunkStore,
	tables storage.TableStore,
	generator Generator,
	thresholds search.Thresholds,
	genTimeout time.Duration,
) *Engine {
	return &Engine{
		retriever:    retriever,
		chunks:       chunks,
		tables:       tables,
		generator:    generator,
		thresholds:   thresholds,
		genTimeout:   genTimeout,
		maxCitations: 6,
		contextSize:  8,
		logger:       slog.Default(),
	}
}

// Ask answers one question. Generation failure never fails the request:
// the response degrades to citations only with the degraded flag set.
func (e *Engine) Ask(ctx context.Context, req Request) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	cls := search.Classify(req.Query)
	logger.InfoContext(ctx, "question received",
		"query", req.Query,
		"scope", req.Scope.Name,
		"intent", cls.Intent,
		"mode", req.Mode,
	)

	if cls.Intent == search.IntentSectionLookup {
		return e.answerSectionLookup(ctx, req, cls)
	}

	k := req.K
	if k <= 0 {
		k = e.contextSize
	}
	results, err := e.retriever.Retrieve(ctx, req.Query, req.Scope, cls, k, search.GranularityChunk)
	if err != nil {
		return Response{}, err
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	confidence := search.Grade(scores, e.thresholds)

	resp := Response{
		Query:      req.Query,
		Scope:      req.Scope.Name,
		Intent:     cls.Intent,
		Confidence: confidence,
		Citations:  e.citations(results),
	}

	if cls.Intent == search.IntentTableLookup {
		resp.Table = e.resolveTable(ctx, results)
	}

	if len(results) == 0 {
		resp.Answer = "The provided documents do not address this."
		resp.Confidence = search.ConfidenceWeak
		return resp, nil
	}

	if req.Mode == ModeSourcesOnly {
		resp.Answer = sourcesOnlyAnswer
		return resp, nil
	}

	draft, err := e.generate(ctx, req.Query, results, confidence)
	if err != nil {
		logger.WarnContext(ctx, "answer synthesis unavailable, degrading to citations", "error", err)
		resp.Degraded = true
		return resp, nil
	}

	answer := Sanitize(draft)
	if !e.numbersGrounded(req.Query, answer, results) {
		logger.WarnContext(ctx, "answer contains ungrounded numbers, degrading to citations", "answer", answer)
		resp.Degraded = true
		return resp, nil
	}

	resp.Answer = answer
	return resp, nil
}

// answerSectionLookup short-circuits retrieval: a bare section id gets
// the fixed deferral phrase and at most one citation pointing at the
// section text itself.
func (e *Engine) answerSectionLookup(ctx context.Context, req Request, cls search.Classification) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	resp := Response{
		Query:      req.Query,
		Scope:      req.Scope.Name,
		Intent:     cls.Intent,
		Answer:     fmt.Sprintf(sectionDeferralFormat, cls.SectionID),
		Confidence: search.ConfidenceWeak,
		Citations:  []Citation{},
	}

	chunks, err := e.chunks.BySection(ctx, cls.SectionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Response{}, fmt.Errorf("section lookup failed: %w", err)
	}

	for i := range chunks {
		c := &chunks[i]
		if !req.Scope.Matches(c.DocType, c.ProcedureID) {
			continue
		}
		resp.Citations = append(resp.Citations, Citation{
			DocumentID:  c.DocumentID,
			Filename:    c.Filename,
			DisplayName: c.DisplayName,
			DocType:     c.DocType,
			ProcedureID: c.ProcedureID,
			PageStart:   c.PageStart,
			PageEnd:     c.PageEnd,
			SectionID:   c.SectionID,
			Heading:     c.Heading,
			ChunkKind:   c.ChunkKind,
			Snippet:     c.Text,
			OpenURL:     search.OpenDocumentURL(c.Filename, c.PageStart),
		})
		resp.Confidence = search.ConfidenceStrong
		break
	}

	logger.InfoContext(ctx, "section lookup answered",
		"section_id", cls.SectionID,
		"found", len(resp.Citations) > 0,
	)
	return resp, nil
}

func (e *Engine) citations(results []search.Result) []Citation {
	limit := e.maxCitations
	if len(results) < limit {
		limit = len(results)
	}
	citations := make([]Citation, 0, limit)
	for _, r := range results[:limit] {
		citations = append(citations, Citation{
			DocumentID:  r.DocumentID,
			Filename:    r.Filename,
			DisplayName: r.DisplayName,
			DocType:     r.DocType,
			ProcedureID: r.ProcedureID,
			PageStart:   r.PageStart,
			PageEnd:     r.PageEnd,
			SectionID:   r.SectionID,
			Heading:     r.Heading,
			ChunkKind:   r.ChunkKind,
			Snippet:     r.Snippet,
			Score:       r.Score,
			OpenURL:     r.OpenURL,
		})
	}
	return citations
}

// resolveTable attaches the stored table behind the best table-row hit.
// A missing table record is logged and skipped, never fatal.
func (e *Engine) resolveTable(ctx context.Context, results []search.Result) *TableRef {
	logger := contextutil.LoggerFromContext(ctx)

	for _, r := range results {
		if r.TableUID == "" {
			continue
		}
		meta, err := e.tables.GetMeta(ctx, r.TableUID)
		if err != nil {
			logger.WarnContext(ctx, "table row cites unknown table, skipping", "table_uid", r.TableUID, "error", err)
			continue
		}
		return &TableRef{
			TableUID:   meta.TableUID,
			TableLabel: meta.TableLabel,
			Title:      meta.Title,
			PageNumber: meta.PageNumber,
			OpenURL:    search.OpenDocumentURL(meta.Filename, meta.PageNumber),
		}
	}
	return nil
}

func (e *Engine) generate(ctx context.Context, query string, results []search.Result, confidence search.Confidence) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()

	system := synthesisSystemPrompt
	if confidence == search.ConfidenceWeak {
		system += hedgedInstruction
	}

	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: query + "\n\n" + e.contextBlock(results)},
	}

	return e.generator.ChatWithMessages(genCtx, messages, llm.ChatParams{Temperature: 0.2})
}

// contextBlock renders the top results as numbered SOURCE passages.
func (e *Engine) contextBlock(results []search.Result) string {
	limit := e.contextSize
	if len(results) < limit {
		limit = len(results)
	}

	var b strings.Builder
	for i, r := range results[:limit] {
		fmt.Fprintf(&b, "SOURCE %d [%s p. %d", i+1, r.DisplayName, r.PageStart)
		if r.SectionID != "" {
			fmt.Fprintf(&b, ", Section %s", r.SectionID)
		}
		b.WriteString("]:\n")
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

var (
	quantityQueryPattern = regexp.MustCompile(`(?i)\b(how many|how much|days?|percent|percentage|minimum|maximum|at least|no more than)\b|%`)
	numberPattern        = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// numbersGrounded verifies that every number in the answer to a
// quantity question appears somewhere in the retrieved passages.
// Numbers match as whole tokens, so "14" is not grounded by "147" or
// "2014". A fabricated number is worse than no answer.
func (e *Engine) numbersGrounded(query, answer string, results []search.Result) bool {
	if answer == "" || !quantityQueryPattern.MatchString(query) {
		return true
	}

	nums := numberPattern.FindAllString(answer, -1)
	if len(nums) == 0 {
		return true
	}

	sourceNums := make(map[string]struct{})
	for _, r := range results {
		for _, n := range numberPattern.FindAllString(r.Text, -1) {
			sourceNums[n] = struct{}{}
		}
		for _, n := range numberPattern.FindAllString(r.SectionID, -1) {
			sourceNums[n] = struct{}{}
		}
	}

	for _, num := range nums {
		if _, ok := sourceNums[num]; !ok {
			return false
		}
	}
	return true
}
