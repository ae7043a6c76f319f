package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/cache"
	"github.com/poiesic/vidsearch/core"
)

// DefaultMaxResults is the number of hits requested from the index per query.
const DefaultMaxResults = 10

// Index is the subset of the vector index used by the searcher.
type Index interface {
	Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error)
}

// Searcher answers keyword and image queries over a video index.
type Searcher struct {
	index      Index
	chat       ai.ChatModel
	results    *cache.Keyed[[]core.SearchResult]
	maxResults int
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithCache shares a query result cache with the searcher.
// Default is a private cache.
func WithCache(results *cache.Keyed[[]core.SearchResult]) Option {
	return func(s *Searcher) error {
		if results != nil {
			s.results = results
		}
		return nil
	}
}

// WithMaxResults sets how many hits are requested from the index.
// Default is DefaultMaxResults.
func WithMaxResults(n int) Option {
	return func(s *Searcher) error {
		if n <= 0 {
			return fmt.Errorf("%w: max results must be positive, got %d", core.ErrConfiguration, n)
		}
		s.maxResults = n
		return nil
	}
}

// WithChatModel enables image search.
func WithChatModel(chat ai.ChatModel) Option {
	return func(s *Searcher) error {
		s.chat = chat
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index Index, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}

	s := &Searcher{
		index:      index,
		maxResults: DefaultMaxResults,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.results == nil {
		s.results = cache.NewKeyed[[]core.SearchResult]()
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// SearchByKeywords returns the indexed videos matching keywords whose score
// is at least threshold, best first.
func (s *Searcher) SearchByKeywords(ctx context.Context, keywords []string, threshold float32) ([]core.SearchResult, error) {
	return s.SearchByKeywordsWithMonitor(ctx, keywords, threshold, nil)
}

// SearchByKeywordsWithMonitor is SearchByKeywords with monitoring.
// The monitor receives callbacks at each stage of the search.
func (s *Searcher) SearchByKeywordsWithMonitor(ctx context.Context, keywords []string, threshold float32, monitor SearchMonitor) ([]core.SearchResult, error) {
	if len(keywords) == 0 {
		return []core.SearchResult{}, nil
	}

	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query := strings.Join(keywords, ", ")
	monitor.Start(query)

	raw, ok := s.results.Get(cache.DefaultNamespace, query)
	if ok {
		monitor.CacheHit(query, raw)
	} else {
		var err error
		raw, err = s.index.Search(ctx, query, s.maxResults)
		if err != nil {
			s.logger.Error("error searching index", "query", query, "err", err)
			return nil, err
		}
		s.results.Set(cache.DefaultNamespace, query, raw)
		monitor.AfterIndexSearch(query, raw)
	}

	results := core.FilterByScore(raw, threshold)
	monitor.Finish(threshold, results)
	return results, nil
}

// SearchOrEmpty is SearchByKeywords for interactive front ends: a failed
// search is logged and reported as no results.
func (s *Searcher) SearchOrEmpty(ctx context.Context, keywords []string, threshold float32) []core.SearchResult {
	results, err := s.SearchByKeywords(ctx, keywords, threshold)
	if err != nil {
		return []core.SearchResult{}
	}
	return results
}

// KeywordsFromImage asks the chat model for keywords describing image.
// A reply that holds no parseable JSON list yields no keywords.
func (s *Searcher) KeywordsFromImage(ctx context.Context, image ai.Image) ([]string, error) {
	if s.chat == nil {
		return nil, ErrChatModelRequired
	}

	prompt := ai.Prompt{
		Text:   imageKeywordsPrompt,
		Images: []ai.Image{image},
	}
	reply, err := s.chat.Invoke(ctx, prompt, ai.WithTemperature(0))
	if err != nil {
		s.logger.Error("error describing image", "err", err)
		return nil, err
	}

	var raw []string
	if err := ai.ParseJSON(reply, &raw); err != nil {
		s.logger.Warn("could not parse keywords from image description", "reply", reply, "err", err)
		return []string{}, nil
	}

	keywords := cleanKeywords(raw)
	s.logger.Debug("keywords from image", "keywords", keywords)
	return keywords, nil
}

// SearchByImage derives keywords from image and runs a keyword search.
// The keywords are returned alongside the results.
func (s *Searcher) SearchByImage(ctx context.Context, image ai.Image, threshold float32) ([]string, []core.SearchResult, error) {
	keywords, err := s.KeywordsFromImage(ctx, image)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.SearchByKeywords(ctx, keywords, threshold)
	return keywords, results, err
}
