package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks spechub/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata. Point ids are the
// SQLite row ids of the unit they embed, so a search hit maps straight
// back to the store.
type Point struct {
	ID   int64
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID int64
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with optional payload filters.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []int64) error

	// EnsureCollection creates the collection if missing and validates
	// the vector size if it exists.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
}
