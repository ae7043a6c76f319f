package storage

import (
	"context"

	"github.com/poiesic/vidsearch/core"
)

// VectorStore persists collections of points and searches them by cosine
// similarity. Implementations must be thread-safe and support concurrent
// access.
type VectorStore interface {
	// Collections lists every collection in the store.
	Collections(ctx context.Context) ([]core.Collection, error)

	// CreateCollection creates an empty collection.
	// Returns ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, collection core.Collection) error

	// GetCollection returns the descriptor of a collection.
	// Returns ErrCollectionNotFound if it does not exist.
	GetCollection(ctx context.Context, name string) (core.Collection, error)

	// Upsert inserts points, replacing any existing point with the same ID.
	// Every vector must match the collection's size.
	Upsert(ctx context.Context, collection string, points ...core.Point) error

	// Search returns up to limit points ordered by descending similarity
	// to vector.
	Search(ctx context.Context, collection string, vector core.Vector, limit int) ([]core.ScoredPoint, error)

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Scan calls fn for every point in a collection, in ID order.
	// Iteration stops at the first error fn returns.
	Scan(ctx context.Context, collection string, fn func(core.Point) error) error

	// Sync flushes pending writes to disk.
	Sync() error

	// Close closes the store and releases resources.
	Close() error
}

// Opener opens the store rooted at path, creating it if needed.
type Opener func(path string) (VectorStore, error)
