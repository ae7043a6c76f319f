package mock

import (
	"context"
	"hash/fnv"
	"math"
	"slices"
	"sync"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
)

// DefaultDimensions is the vector size produced by MockEmbedder by default.
const DefaultDimensions = 8

// EmbedCall records one EmbedTexts invocation.
type EmbedCall struct {
	Texts   []string
	Options ai.EmbedOptions
}

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and records
// every call it receives.
type MockEmbedder struct {
	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error)

	mu    sync.Mutex
	calls []EmbedCall
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// WithEmbedTextsFunc sets custom behavior and returns the mock for chaining.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// EmbedTexts generates deterministic embeddings for multiple texts.
// Without a custom func, vectors have opts.Dimensions components
// (DefaultDimensions when unset).
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error) {
	m.mu.Lock()
	m.calls = append(m.calls, EmbedCall{Texts: slices.Clone(texts), Options: opts})
	fn := m.EmbedTextsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts, opts)
	}

	dim := opts.Dimensions
	if dim <= 0 {
		dim = DefaultDimensions
	}
	embeddings := make([]core.Vector, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicVector(text, dim)
	}
	return embeddings, nil
}

// CallCount returns the number of times EmbedTexts was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls in order.
func (m *MockEmbedder) Calls() []EmbedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Reset clears recorded calls and custom behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.EmbedTextsFunc = nil
}

// DeterministicVector creates a unit-length embedding vector from text.
// It uses an FNV hash so the same text always produces the same vector.
func DeterministicVector(text string, dim int) core.Vector {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make(core.Vector, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}
