package openai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// A langchaingo embedder is created lazily for each model and dimension
// count requested.
type Embedder struct {
	host         string
	token        string
	defaultModel string

	mu        sync.Mutex
	embedders map[embedderKey]embeddings.Embedder
	logger    *slog.Logger
}

type embedderKey struct {
	model string
	dims  int
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Embedder{
		host:         config.EmbeddingHost,
		token:        config.Token,
		defaultModel: config.EmbeddingModel,
		embedders:    make(map[embedderKey]embeddings.Embedder),
		logger:       slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

func (e *Embedder) embedderFor(model string, dims int) (embeddings.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := embedderKey{model: model, dims: dims}
	if emb, ok := e.embedders[key]; ok {
		return emb, nil
	}

	clientOpts := []openai.Option{
		openai.WithBaseURL(e.host),
		openai.WithToken(e.token),
		openai.WithEmbeddingModel(model),
	}
	if dims > 0 {
		clientOpts = append(clientOpts, openai.WithEmbeddingDimensions(dims))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding client: %w", core.ErrConfiguration, err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: embedding client: %w", core.ErrConfiguration, err)
	}
	e.embedders[key] = emb
	return emb, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// When opts.Dimensions is set it is sent with the request. Backends that
// ignore it and return longer vectors get them truncated and rescaled to
// unit length here.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error) {
	model := opts.Model
	if model == "" {
		model = e.defaultModel
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts), "model", model, "dimensions", opts.Dimensions)

	emb, err := e.embedderFor(model, opts.Dimensions)
	if err != nil {
		return nil, err
	}

	raw, err := emb.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	vectors := make([]core.Vector, len(raw))
	for i, v := range raw {
		vectors[i] = shorten(v, opts.Dimensions)
	}
	return vectors, nil
}

// shorten truncates v to dims components and L2-normalizes the result.
// A zero dims, or a vector already no longer than dims, is returned as is.
func shorten(v []float32, dims int) core.Vector {
	if dims <= 0 || len(v) <= dims {
		return v
	}

	out := make(core.Vector, dims)
	copy(out, v[:dims])

	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
