package mock

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/vidsearch/ai"
)

// ChatCall records one Invoke or Stream invocation.
type ChatCall struct {
	Prompt  ai.Prompt
	Options ai.CallOptions
}

// MockChat is a test double for ai.ChatModel.
type MockChat struct {
	// InvokeFunc is called by Invoke if set. If nil, Invoke returns Response.
	InvokeFunc func(ctx context.Context, prompt ai.Prompt, opts ai.CallOptions) (string, error)

	// Response is the canned reply used when InvokeFunc is nil.
	Response string

	mu    sync.Mutex
	calls []ChatCall
}

// NewMockChat creates a mock chat model that always replies with response.
func NewMockChat(response string) *MockChat {
	return &MockChat{Response: response}
}

// WithInvokeFunc sets custom behavior and returns the mock for chaining.
func (m *MockChat) WithInvokeFunc(fn func(ctx context.Context, prompt ai.Prompt, opts ai.CallOptions) (string, error)) *MockChat {
	m.InvokeFunc = fn
	return m
}

// Invoke returns the scripted reply.
func (m *MockChat) Invoke(ctx context.Context, prompt ai.Prompt, opts ...ai.CallOption) (string, error) {
	if err := prompt.Validate(); err != nil {
		return "", err
	}
	o := ai.ApplyCallOptions(opts...)

	m.mu.Lock()
	m.calls = append(m.calls, ChatCall{Prompt: prompt, Options: o})
	fn, response := m.InvokeFunc, m.Response
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, o)
	}
	return response, nil
}

// Stream yields the scripted reply split into words.
func (m *MockChat) Stream(ctx context.Context, prompt ai.Prompt, opts ...ai.CallOption) (iter.Seq2[string, error], error) {
	if err := prompt.Validate(); err != nil {
		return nil, err
	}
	return func(yield func(string, error) bool) {
		text, err := m.Invoke(ctx, prompt, opts...)
		if err != nil {
			yield("", err)
			return
		}
		for _, word := range strings.SplitAfter(text, " ") {
			if word == "" {
				continue
			}
			if !yield(word, nil) {
				return
			}
		}
	}, nil
}

// CallCount returns the number of completed prompt submissions.
func (m *MockChat) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls in order.
func (m *MockChat) Calls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Reset clears recorded calls and custom behavior.
func (m *MockChat) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.InvokeFunc = nil
}
