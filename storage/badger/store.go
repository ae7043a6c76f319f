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


package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/storage"
)

// Store implements storage.VectorStore on top of BadgerDB.
// Similarity search is a full scan of the collection.
type Store struct {
	backend *Backend
}

var _ storage.VectorStore = (*Store)(nil)

// Open opens the store in directory path, creating it if needed.
//
// Returns storage.VectorStore interface to enforce abstraction.
func Open(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend), nil
}

func newStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Collections lists every collection in the store, ordered by name.
func (s *Store) Collections(ctx context.Context) ([]core.Collection, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var collections []core.Collection
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				c, err := storage.UnmarshalCollection(val)
				if err != nil {
					return err
				}
				collections = append(collections, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// CreateCollection creates an empty collection.
func (s *Store) CreateCollection(ctx context.Context, collection core.Collection) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if collection.Name == "" || collection.VectorSize <= 0 {
		return fmt.Errorf("%w: collection needs a name and a positive vector size", storage.ErrInvalidQuery)
	}
	if collection.Distance == "" {
		collection.Distance = core.DistanceCosine
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(collection.Name)
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrCollectionExists, collection.Name)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(key, storage.MarshalCollection(collection))
	}, true)
}

// GetCollection returns the descriptor of a collection.
func (s *Store) GetCollection(ctx context.Context, name string) (core.Collection, error) {
	if err := s.checkOpen(); err != nil {
		return core.Collection{}, err
	}

	var collection core.Collection
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		collection, err = getCollection(tx, name)
		return err
	}, false)
	return collection, err
}

func getCollection(tx *badger.Txn, name string) (core.Collection, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.Collection{}, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return core.Collection{}, err
	}

	var collection core.Collection
	err = item.Value(func(val []byte) error {
		collection, err = storage.UnmarshalCollection(val)
		return err
	})
	return collection, err
}

// Upsert writes points in one batch, replacing points with the same ID.
func (s *Store) Upsert(ctx context.Context, collection string, points ...core.Point) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	desc, err := s.GetCollection(ctx, collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := core.ValidateVector(p.Vector, desc.VectorSize); err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
	}

	return s.backend.WriteBatch(func(wb *badger.WriteBatch) error {
		for _, p := range points {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := storage.MarshalPoint(p)
			if err != nil {
				return err
			}
			if err := wb.Set(makePointKey(collection, p.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Search scores every point of the collection against vector by cosine
// similarity and returns the best limit points, highest score first.
func (s *Store) Search(ctx context.Context, collection string, vector core.Vector, limit int) ([]core.ScoredPoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	desc, err := s.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateVector(vector, desc.VectorSize); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	queryNorm := norm(vector)
	var results []core.ScoredPoint
	err = s.Scan(ctx, collection, func(p core.Point) error {
		results = append(results, core.ScoredPoint{
			Point: p,
			Score: cosineSimilarity(vector, queryNorm, p.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, ID breaks ties for a stable order
	slices.SortFunc(results, func(a, b core.ScoredPoint) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getCollection(tx, collection); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Scan calls fn for every point of a collection in key order.
func (s *Store) Scan(ctx context.Context, collection string, fn func(core.Point) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getCollection(tx, collection); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var point core.Point
			err := iter.Item().Value(func(val []byte) error {
				var err error
				point, err = storage.UnmarshalPoint(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(point); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Sync flushes pending writes to disk.
func (s *Store) Sync() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.backend.Sync()
}

// Close closes the store. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

func norm(v core.Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity returns the cosine of the angle between a and b.
// A zero vector has similarity 0 with everything.
func cosineSimilarity(a core.Vector, aNorm float64, b core.Vector) float32 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
