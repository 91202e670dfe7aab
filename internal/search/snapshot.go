package search

import "sync/atomic"

// Snapshots holds the current lexical index per granularity behind
// atomic pointers. A rebuild constructs a fresh Index offline and swaps
// it in; readers either see the old complete index or the new complete
// index, never a partial one.
type Snapshots struct {
	page  atomic.Pointer[Index]
	chunk atomic.Pointer[Index]
}

// NewSnapshots returns an empty snapshot holder. Load returns nil until
// the first Swap for a granularity.
func NewSnapshots() *Snapshots {
	return &Snapshots{}
}

// Load returns the current index for a granularity, or nil if none has
// been built yet.
func (s *Snapshots) Load(g Granularity) *Index {
	if g == GranularityPage {
		return s.page.Load()
	}
	return s.chunk.Load()
}

// Swap publishes a new index for a granularity.
func (s *Snapshots) Swap(g Granularity, ix *Index) {
	if g == GranularityPage {
		s.page.Store(ix)
		return
	}
	s.chunk.Store(ix)
}
