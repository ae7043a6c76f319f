package mock

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/vidsearch/ai"
)

// MockTranscriber is a test double for ai.Transcriber.
type MockTranscriber struct {
	// TranscribeFunc is called by Transcribe if set.
	// If nil, a two-segment transcription naming the file is returned.
	TranscribeFunc func(ctx context.Context, path string, opts ai.TranscribeOptions) (*ai.Transcription, error)

	mu    sync.Mutex
	paths []string
}

// NewMockTranscriber creates a mock transcriber with default behavior.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// WithTranscribeFunc sets custom behavior and returns the mock for chaining.
func (m *MockTranscriber) WithTranscribeFunc(fn func(ctx context.Context, path string, opts ai.TranscribeOptions) (*ai.Transcription, error)) *MockTranscriber {
	m.TranscribeFunc = fn
	return m
}

// Transcribe returns a transcription derived from the file name.
func (m *MockTranscriber) Transcribe(ctx context.Context, path string, opts ai.TranscribeOptions) (*ai.Transcription, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	fn := m.TranscribeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, path, opts)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &ai.Transcription{
		Text:     "This is " + name + ". The end.",
		Language: "english",
		Duration: 5,
		Segments: []ai.Segment{
			{Start: 0, End: 3, Text: "This is " + name + "."},
			{Start: 3, End: 5, Text: "The end."},
		},
	}, nil
}

// CallCount returns the number of times Transcribe was called.
func (m *MockTranscriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// Paths returns the audio paths passed to Transcribe in order.
func (m *MockTranscriber) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.paths)
}

// Reset clears recorded calls and custom behavior.
func (m *MockTranscriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = nil
	m.TranscribeFunc = nil
}
