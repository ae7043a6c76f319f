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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/cache"
	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/retry"
)

// Pipeline embeds text with a fixed model, memoizing every vector it
// obtains. It is safe for concurrent use.
type Pipeline struct {
	embedder   ai.Embedder
	cache      *cache.Keyed[core.Vector]
	model      string
	dimensions int
	policy     retry.Policy
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCache shares an existing vector cache. By default each pipeline
// owns a private one.
func WithCache(c *cache.Keyed[core.Vector]) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.cache = c
		}
		return nil
	}
}

// WithDimensions requests vectors of a fixed size. Every vector the
// backend returns must then have exactly n components.
func WithDimensions(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: embedding dimensions cannot be negative", core.ErrConfiguration)
		}
		p.dimensions = n
		return nil
	}
}

// WithRetryPolicy sets the retry policy for backend calls.
// Default retries errors wrapping ai.ErrTransient three times.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		p.policy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an embedding pipeline for model.
func NewPipeline(embedder ai.Embedder, model string, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", core.ErrConfiguration)
	}

	p := &Pipeline{
		embedder: embedder,
		model:    model,
		policy: retry.DefaultPolicy(func(err error) bool {
			return errors.Is(err, ai.ErrTransient)
		}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.cache == nil {
		p.cache = cache.NewKeyed[core.Vector]()
	}
	p.logger = p.logger.With("component", "embedding-pipeline", "model", model)
	if p.policy.Logger == nil {
		p.policy.Logger = p.logger
	}
	return p, nil
}

// Model returns the embedding model name.
func (p *Pipeline) Model() string {
	return p.model
}

// Dimensions returns the requested vector size, or zero if unset.
func (p *Pipeline) Dimensions() int {
	return p.dimensions
}

// Embed returns one vector per input, in input order. Cached vectors are
// reused; all misses, duplicates included, go to the backend in a single
// call and are cached on success. Nothing is cached when the call fails
// or its answer is malformed.
func (p *Pipeline) Embed(ctx context.Context, inputs ...string) ([]core.Vector, error) {
	results := make([]core.Vector, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	var missing []string
	var missingIdx []int
	for i, input := range inputs {
		if v, ok := p.cache.Get(p.model, input); ok {
			results[i] = v
			continue
		}
		missing = append(missing, input)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		p.logger.Debug("all embeddings cached", "count", len(inputs))
		return results, nil
	}

	p.logger.Debug("embedding cache misses", "misses", len(missing), "total", len(inputs))
	opts := ai.EmbedOptions{Model: p.model, Dimensions: p.dimensions}
	vectors, err := retry.Do(ctx, p.policy, func(ctx context.Context) ([]core.Vector, error) {
		return p.embedder.EmbedTexts(ctx, missing, opts)
	})
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrVectorCountMismatch, len(missing), len(vectors))
	}
	if p.dimensions > 0 {
		for j, v := range vectors {
			if len(v) != p.dimensions {
				return nil, fmt.Errorf("%w: vector %d has %d components, want %d",
					core.ErrDimensionMismatch, j, len(v), p.dimensions)
			}
		}
	}

	for j, v := range vectors {
		p.cache.Set(p.model, missing[j], v)
		results[missingIdx[j]] = v
	}
	return results, nil
}
