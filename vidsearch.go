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


package vidsearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/ai/openai"
	"github.com/poiesic/vidsearch/cache"
	"github.com/poiesic/vidsearch/config"
	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/embedding"
	"github.com/poiesic/vidsearch/index"
	"github.com/poiesic/vidsearch/ingestion"
	"github.com/poiesic/vidsearch/reembed"
	"github.com/poiesic/vidsearch/retry"
	"github.com/poiesic/vidsearch/search"
	"github.com/poiesic/vidsearch/storage"
)

// Engine owns the long-lived services of vidsearch: the AI provider, the
// embedding and query caches, the vector index and the searcher.
type Engine struct {
	config   *config.Config
	provider ai.AIProvider
	vectors  *cache.Keyed[core.Vector]
	results  *cache.Keyed[[]core.SearchResult]
	embedder *embedding.Pipeline
	index    *index.Index
	searcher *search.Searcher
	rebuilt  *atomic.Bool
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	opener   storage.Opener
	logger   *slog.Logger
}

// WithProvider replaces the OpenAI provider built from the configuration.
// The engine takes ownership and closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithOpener replaces the on-disk Badger store.
func WithOpener(open storage.Opener) EngineOption {
	return func(o *engineOptions) {
		o.opener = open
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine validates cfg and opens the index below cfg.WorkingDir,
// creating the directory and the collection when missing.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	if err := os.MkdirAll(cfg.WorkingDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create working dir: %w", core.ErrConfiguration, err)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return nil, err
		}
	}

	vectors := cache.NewKeyed[core.Vector]()
	embedder, err := embedding.NewPipeline(provider.Embedder(), cfg.EmbeddingModel,
		embedding.WithCache(vectors),
		embedding.WithDimensions(cfg.EmbeddingDimension),
		embedding.WithRetryPolicy(retry.DefaultPolicy(openai.IsTransient)),
		embedding.WithLogger(logger))
	if err != nil {
		provider.Close()
		return nil, err
	}

	rebuilt := new(atomic.Bool)
	indexOpts := []index.Option{
		index.WithLogger(logger),
		index.WithRebuildHook(func() { rebuilt.Store(true) }),
	}
	if options.opener != nil {
		indexOpts = append(indexOpts, index.WithOpener(options.opener))
	}
	idx, err := index.Open(ctx, cfg.StorePath(), cfg.CollectionName, cfg.EmbeddingDimension, embedder, indexOpts...)
	if err != nil {
		provider.Close()
		return nil, err
	}

	results := cache.NewKeyed[[]core.SearchResult]()
	searcher, err := search.NewSearcher(idx,
		search.WithCache(results),
		search.WithMaxResults(cfg.MaxSearchResults),
		search.WithChatModel(provider.ChatModel()),
		search.WithLogger(logger))
	if err != nil {
		idx.Close()
		provider.Close()
		return nil, err
	}

	return &Engine{
		config:   cfg,
		provider: provider,
		vectors:  vectors,
		results:  results,
		embedder: embedder,
		index:    idx,
		searcher: searcher,
		rebuilt:  rebuilt,
		logger:   logger,
	}, nil
}

// Close releases the index and the AI provider.
func (e *Engine) Close() error {
	logger := e.logger.With("component", "engine")
	if err := e.provider.Close(); err != nil {
		logger.Error("error closing AI provider", "err", err)
	}
	if err := e.index.Close(); err != nil {
		logger.Error("error closing vector index", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Index() *index.Index {
	return e.index
}

func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// NewIngestionPipeline creates an ingestion pipeline writing to the
// engine's index. Every indexed batch clears the query result cache.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithLanguage(e.config.Language),
		ingestion.WithLogger(e.logger),
	}
	if e.config.Workers > 0 {
		defaults = append(defaults, ingestion.WithPoolSize(e.config.Workers))
	}
	return ingestion.NewPipeline(&invalidatingIndexer{index: e.index, results: e.results},
		e.provider, e.config.WorkingDir, append(defaults, opts...)...)
}

// TakeRebuilt reports whether the index was rebuilt after a store failure
// since the last call. Incremental ingestion uses it to know when the
// whole video directory has to be indexed again.
func (e *Engine) TakeRebuilt() bool {
	return e.rebuilt.Swap(false)
}

// ResetIndex removes every indexed video.
func (e *Engine) ResetIndex(ctx context.Context) error {
	defer e.results.Clear()
	return e.index.Reset(ctx)
}

// Reembed recomputes every vector of the index with the configured model.
// Progress is written to progress.
func (e *Engine) Reembed(ctx context.Context, cfg *reembed.Config, progress io.Writer) (int, error) {
	defer e.results.Clear()
	return reembed.NewReembedder(e.index, e.embedder, cfg, progress).Run(ctx)
}

// invalidatingIndexer drops cached query results whenever documents are
// added, so searches in the same process see new videos.
type invalidatingIndexer struct {
	index   ingestion.Indexer
	results *cache.Keyed[[]core.SearchResult]
}

func (i *invalidatingIndexer) AddDocuments(ctx context.Context, docs []core.Document) error {
	defer i.results.Clear()
	return i.index.AddDocuments(ctx, docs)
}
