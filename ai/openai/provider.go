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


package openai

import (
	"log/slog"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/retry"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages the embedder, chat model and transcriber instances.
type Provider struct {
	config      *ai.Config
	embedder    *Embedder
	chat        *Chat
	transcriber *Transcriber
	logger      *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	policy retry.Policy
}

// WithRetryPolicy replaces the retry policy used for chat and transcription
// calls. Embedding calls are retried by their caller.
func WithRetryPolicy(policy retry.Policy) ProviderOption {
	return func(o *providerOptions) {
		o.policy = policy
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := providerOptions{policy: retry.DefaultPolicy(IsTransient)}
	for _, opt := range opts {
		opt(&o)
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	chat, err := newChat(config, o.policy)
	if err != nil {
		return nil, err
	}

	transcriber, err := newTranscriber(config, o.policy)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:      config,
		embedder:    embedder,
		chat:        chat,
		transcriber: transcriber,
		logger:      slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the chat completion service.
func (p *Provider) ChatModel() ai.ChatModel {
	return p.chat
}

// Transcriber returns the speech-to-text service.
func (p *Provider) Transcriber() ai.Transcriber {
	return p.transcriber
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
