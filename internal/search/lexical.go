package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// tokenPattern keeps dotted and hyphenated spec identifiers intact, so
// "103.04" and "MP-7" survive as single tokens.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:[.\-/:][a-z0-9]+)*`)

var separatorReplacer = strings.NewReplacer(".", "", "-", "", "/", "", ":", "")

// Tokenize lowercases text and splits it into BM25 terms. Tokens that
// contain separators also emit a collapsed variant, so a query for
// "MP7" still matches text that writes "MP-7".
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tokens = append(tokens, tok)
		if strings.ContainsAny(tok, ".-/:") {
			collapsed := separatorReplacer.Replace(tok)
			if collapsed != "" && collapsed != tok {
				tokens = append(tokens, collapsed)
			}
		}
	}
	return tokens
}

type posting struct {
	ord int32
	tf  int32
}

// Index is an immutable in-memory BM25 index over a set of entries.
// Build once, share freely; a rebuild constructs a new Index and the
// snapshot holder swaps the pointer.
type Index struct {
	entries  []Entry
	byID     map[int64]int
	postings map[string][]posting
	lengths  []int
	avgLen   float64
}

// BuildIndex constructs a BM25 index over the given entries.
func BuildIndex(entries []Entry) *Index {
	ix := &Index{
		entries:  entries,
		byID:     make(map[int64]int, len(entries)),
		postings: make(map[string][]posting),
		lengths:  make([]int, len(entries)),
	}

	var totalLen int
	for ord, e := range entries {
		ix.byID[e.ID] = ord

		counts := make(map[string]int32)
		tokens := Tokenize(e.Text)
		for _, tok := range tokens {
			counts[tok]++
		}
		for tok, tf := range counts {
			ix.postings[tok] = append(ix.postings[tok], posting{ord: int32(ord), tf: tf})
		}

		ix.lengths[ord] = len(tokens)
		totalLen += len(tokens)
	}
	if len(entries) > 0 {
		ix.avgLen = float64(totalLen) / float64(len(entries))
	}
	return ix
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	return len(ix.entries)
}

// Lookup returns the entry for an index id, if present.
func (ix *Index) Lookup(id int64) (*Entry, bool) {
	ord, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return &ix.entries[ord], true
}

// Candidate is one scored hit from a single ranker.
type Candidate struct {
	ID    int64
	Score float64
}

// Search scores the query against all in-scope entries and returns up
// to k candidates in descending score order. Ties break by document id
// then chunk index so repeated queries return identical orderings.
func (ix *Index) Search(query string, scope Scope, k int) []Candidate {
	terms := Tokenize(query)
	if len(terms) == 0 || len(ix.entries) == 0 {
		return nil
	}

	n := float64(len(ix.entries))
	scores := make(map[int32]float64)
	for _, term := range terms {
		plist := ix.postings[term]
		if len(plist) == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(len(plist))+0.5)/(float64(len(plist))+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(ix.lengths[p.ord])/ix.avgLen))
			scores[p.ord] += idf * norm
		}
	}

	candidates := make([]Candidate, 0, len(scores))
	ords := make(map[int64]int32, len(scores))
	for ord, score := range scores {
		e := &ix.entries[ord]
		if score <= 0 || !scope.Matches(e.DocType, e.ProcedureID) {
			continue
		}
		candidates = append(candidates, Candidate{ID: e.ID, Score: score})
		ords[e.ID] = ord
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		a := &ix.entries[ords[candidates[i].ID]]
		b := &ix.entries[ords[candidates[j].ID]]
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkIndex < b.ChunkIndex
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
