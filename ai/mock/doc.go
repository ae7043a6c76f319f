// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatModel,
// ai.Transcriber and ai.AIProvider for use in unit tests. The mocks allow
// tests to run without external AI service dependencies and record every
// call so tests can assert on exactly what reached the backend.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string, opts ai.EmbedOptions) ([]core.Vector, error) {
//	        return []core.Vector{{1, 0}}, nil
//	    })
//
//	calls := embedder.Calls() // inputs of every backend call
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockChat: a canned response, streamed word by word
//   - MockTranscriber: a two-segment transcription naming the audio file
//   - MockProvider: aggregates the three
package mock
