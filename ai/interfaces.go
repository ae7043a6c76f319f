package ai

import (
	"context"
	"iter"

	"github.com/poiesic/vidsearch/core"
)

// EmbedOptions selects the model and output size of an embedding call.
type EmbedOptions struct {
	// Model is the embedding model identifier. Empty uses the provider default.
	Model string

	// Dimensions is the requested output size. Zero leaves the model's
	// native size.
	Dimensions int
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in a
	// single backend call. The returned slice contains embeddings in the
	// same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string, opts EmbedOptions) ([]core.Vector, error)
}

// ChatModel produces text completions for a prompt.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Invoke returns the full completion text for a prompt.
	Invoke(ctx context.Context, prompt Prompt, opts ...CallOption) (string, error)

	// Stream returns completion fragments as they arrive. The returned
	// sequence yields a non-nil error at most once, as its final element.
	// Breaking out of the sequence stops the underlying request.
	Stream(ctx context.Context, prompt Prompt, opts ...CallOption) (iter.Seq2[string, error], error)
}

// Transcriber converts an audio file to timestamped text.
// Implementations must be thread-safe for concurrent use.
type Transcriber interface {
	// Transcribe reads the audio file at path and returns its transcription.
	Transcribe(ctx context.Context, path string, opts TranscribeOptions) (*Transcription, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the embedding, chat and transcription
// services, ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ChatModel returns the chat completion service.
	ChatModel() ChatModel

	// Transcriber returns the speech-to-text service.
	Transcriber() Transcriber

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
