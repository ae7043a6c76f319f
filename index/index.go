// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/storage"
	"github.com/poiesic/vidsearch/storage/badger"
)

// Embedder produces one vector per input, in input order.
// *embedding.Pipeline satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs ...string) ([]core.Vector, error)
}

// Index is a vector collection of documents backed by a VectorStore.
// It is safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	store      storage.VectorStore
	open       storage.Opener
	path       string
	collection core.Collection
	embedder   Embedder
	onRebuild  func()
	logger     *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithOpener replaces the function used to open (and reopen) the store.
// Default is badger.Open.
func WithOpener(open storage.Opener) Option {
	return func(idx *Index) error {
		if open != nil {
			idx.open = open
		}
		return nil
	}
}

// WithRebuildHook registers fn to run after AddDocuments has rebuilt the
// store following a failure, whether or not the retry succeeded. Every
// point written before the failure is gone, so incremental writers should
// re-ingest everything.
func WithRebuildHook(fn func()) Option {
	return func(idx *Index) error {
		idx.onRebuild = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger
		return nil
	}
}

// Open opens the store in directory path and ensures the named collection
// exists with vectorSize dimensions.
func Open(ctx context.Context, path, name string, vectorSize int, embedder Embedder, opts ...Option) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if path == "" {
		return nil, fmt.Errorf("%w: index path is required", core.ErrConfiguration)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is required", core.ErrConfiguration)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", core.ErrConfiguration, vectorSize)
	}

	idx := &Index{
		open: badger.Open,
		path: path,
		collection: core.Collection{
			Name:       name,
			VectorSize: vectorSize,
			Distance:   core.DistanceCosine,
		},
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	idx.logger = idx.logger.With("component", "vector-index", "collection", name)

	store, err := idx.open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector store %s: %w", path, err)
	}
	idx.store = store

	if err := idx.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return idx, nil
}

// Collection returns the collection descriptor the index was opened with.
func (idx *Index) Collection() core.Collection {
	return idx.collection
}

// EnsureCollection creates the collection if the store does not have it.
// An existing collection with a different vector size is a configuration
// error.
func (idx *Index) EnsureCollection(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.ensureCollection(ctx)
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	if idx.store == nil {
		return storage.ErrStorageClosed
	}

	collections, err := idx.store.Collections(ctx)
	if err != nil {
		return err
	}
	for _, c := range collections {
		if c.Name != idx.collection.Name {
			continue
		}
		if c.VectorSize != idx.collection.VectorSize {
			return fmt.Errorf("%w: collection %q has vector size %d, configured %d",
				core.ErrConfiguration, c.Name, c.VectorSize, idx.collection.VectorSize)
		}
		return nil
	}

	idx.logger.Info("creating collection", "vectorSize", idx.collection.VectorSize)
	return idx.store.CreateCollection(ctx, idx.collection)
}

// AddDocuments embeds every document in one call and upserts the resulting
// points. Embedding failures are returned as is. A store failure triggers
// one rebuild of the store followed by one retry.
func (idx *Index) AddDocuments(ctx context.Context, docs []core.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := core.ValidateDocuments(docs); err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := idx.embedder.Embed(ctx, texts...)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: %d documents, %d vectors", ErrVectorCountMismatch, len(docs), len(vectors))
	}

	points := make([]core.Point, len(docs))
	for i, doc := range docs {
		if err := core.ValidateVector(vectors[i], idx.collection.VectorSize); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		points[i] = core.NewPoint(doc, vectors[i])
	}

	rebuilt, err := idx.addPoints(ctx, points)
	if rebuilt && idx.onRebuild != nil {
		idx.onRebuild()
	}
	return err
}

// addPoints upserts points, rebuilding the store and retrying once when
// the store fails. rebuilt reports whether the store was rebuilt.
func (idx *Index) addPoints(ctx context.Context, points []core.Point) (rebuilt bool, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.store == nil {
		return false, storage.ErrStorageClosed
	}
	err = idx.upsert(ctx, points)
	if err == nil {
		idx.logger.Debug("added documents", "count", len(points))
		return false, nil
	}
	if ctx.Err() != nil {
		return false, err
	}

	idx.logger.Warn("vector store failed, rebuilding", "path", idx.path, "err", err)
	if rerr := idx.rebuild(ctx); rerr != nil {
		return true, fmt.Errorf("%w: rebuild after %v: %w", storage.ErrStoreCorruption, err, rerr)
	}
	if err := idx.upsert(ctx, points); err != nil {
		idx.logger.Error("vector store failed after rebuild", "err", err)
		return true, fmt.Errorf("%w: %w", storage.ErrStoreCorruption, err)
	}
	idx.logger.Info("added documents after rebuild", "count", len(points))
	return true, nil
}

// UpsertPoints writes prepared points without embedding them. Used to
// rewrite vectors of points that are already in the collection.
func (idx *Index) UpsertPoints(ctx context.Context, points []core.Point) error {
	for _, p := range points {
		if err := core.ValidateVector(p.Vector, idx.collection.VectorSize); err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.upsert(ctx, points)
}

// upsert must be called with the write lock held.
func (idx *Index) upsert(ctx context.Context, points []core.Point) error {
	if idx.store == nil {
		return storage.ErrStorageClosed
	}
	if _, err := idx.store.GetCollection(ctx, idx.collection.Name); err != nil {
		return err
	}
	return idx.store.Upsert(ctx, idx.collection.Name, points...)
}

// Reset discards every point by removing the store directory and
// recreating an empty collection with the same configuration.
func (idx *Index) Reset(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.store == nil {
		return storage.ErrStorageClosed
	}
	idx.logger.Info("resetting vector store", "path", idx.path)
	return idx.rebuild(ctx)
}

// rebuild discards the store directory and recreates the collection.
// Must be called with the write lock held.
func (idx *Index) rebuild(ctx context.Context) error {
	if idx.store != nil {
		if err := idx.store.Close(); err != nil {
			idx.logger.Warn("closing failed store", "err", err)
		}
		idx.store = nil
	}

	if err := os.RemoveAll(idx.path); err != nil {
		return fmt.Errorf("remove %s: %w", idx.path, err)
	}

	store, err := idx.open(idx.path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", idx.path, err)
	}
	idx.store = store

	return idx.store.CreateCollection(ctx, idx.collection)
}

// Search embeds query and returns up to topK results ordered by
// descending score.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error) {
	vectors, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: 1 query, %d vectors", ErrVectorCountMismatch, len(vectors))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.store == nil {
		return nil, storage.ErrStorageClosed
	}
	hits, err := idx.store.Search(ctx, idx.collection.Name, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = core.ResultFromPoint(hit)
	}
	return results, nil
}

// Scan calls fn for every point in the collection.
func (idx *Index) Scan(ctx context.Context, fn func(core.Point) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.store == nil {
		return storage.ErrStorageClosed
	}
	return idx.store.Scan(ctx, idx.collection.Name, fn)
}

// Count returns the number of points in the collection.
func (idx *Index) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.store == nil {
		return 0, storage.ErrStorageClosed
	}
	return idx.store.Count(ctx, idx.collection.Name)
}

// Persist flushes the store. Every committed write is already durable, so
// this only forces pending value log writes to disk.
func (idx *Index) Persist(ctx context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.store == nil {
		return storage.ErrStorageClosed
	}
	return idx.store.Sync()
}

// Close closes the underlying store.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.store == nil {
		return nil
	}
	err := idx.store.Close()
	idx.store = nil
	return err
}
