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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/vidsearch/core"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of points to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of points)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
	}
}

// Collection is the index being reembedded.
// *index.Index satisfies it.
type Collection interface {
	Scanner
	Writer
	Count(ctx context.Context) (int, error)
}

// Reembedder orchestrates the reembedding of all points in an index.
type Reembedder struct {
	collection Collection
	config     *Config
	progress   io.Writer
	processor  *BatchProcessor
	iterator   *PointIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(collection Collection, embedder Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		collection: collection,
		config:     config,
		progress:   progress,
		processor:  NewBatchProcessor(collection, embedder),
		iterator:   NewPointIterator(collection, config.BatchSize),
	}
}

// Run reembeds every point in the collection and returns how many were
// processed. A failed batch stops the run; batches already written keep
// their new vectors.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total, err := r.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No points found in index (0 points)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d points (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, "points", r.config.ReportInterval)
	tracker.Start(total)

	processed := 0
	err = r.iterator.ForEach(ctx, func(points []core.Point) error {
		if err := r.processor.Process(ctx, points); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(points)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d points in %v (%.1f points/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/elapsed.Seconds())

	return processed, nil
}
