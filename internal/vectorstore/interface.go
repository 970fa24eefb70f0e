package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks coach-ai/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when an operation targets a collection that was never created.
var ErrCollectionNotFound = errors.New("collection not found")

// Point represents a vector point with metadata.
// Meta carries the chunk text under the "text" key next to the chunk metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Higher scores are closer matches.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// EnsureCollection creates the collection if needed and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k points closest to query, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases the underlying connection.
	Close() error
}
