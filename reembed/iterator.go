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


package reembed

import (
	"context"

	"github.com/poiesic/vidsearch/core"
)

const (
	// DefaultBatchSize is the default number of points handed to fn in each batch
	DefaultBatchSize = 100
)

// Scanner walks every point of a collection.
// *index.Index satisfies it.
type Scanner interface {
	Scan(ctx context.Context, fn func(core.Point) error) error
}

// PointIterator iterates over all points of a collection in batches.
type PointIterator struct {
	scanner   Scanner
	batchSize int
}

// NewPointIterator creates a new point iterator.
// batchSize: number of points per batch (defaults to DefaultBatchSize when <= 0)
func NewPointIterator(scanner Scanner, batchSize int) *PointIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PointIterator{
		scanner:   scanner,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of points.
// The scan completes before the first batch is handed out, so fn may write
// back to the collection it is iterating. Iteration stops on the first
// error from fn. Context cancellation is checked between batches.
func (it *PointIterator) ForEach(ctx context.Context, fn func([]core.Point) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var points []core.Point
	err := it.scanner.Scan(ctx, func(p core.Point) error {
		points = append(points, p)
		return nil
	})
	if err != nil {
		return err
	}

	for i := 0; i < len(points); i += it.batchSize {
		end := min(i+it.batchSize, len(points))

		if err := fn(points[i:end]); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
