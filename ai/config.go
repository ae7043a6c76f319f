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


package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/vidsearch/core"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1" or "http://localhost:11434/v1"
	EmbeddingHost string

	// ChatHost is the base URL for the chat and transcription service API.
	// Example: "https://api.openai.com/v1"
	ChatHost string

	// Token is the API key sent to both hosts. Local OpenAI-compatible
	// servers accept any value.
	Token string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-large"
	EmbeddingModel string

	// EmbeddingDimensions fixes the output dimensionality of embeddings.
	// Zero leaves the model's native size. When set it must equal the
	// vector size of the collection.
	EmbeddingDimensions int

	// ChatModel is the model used for summaries and image keywords.
	// Example: "gpt-4o"
	ChatModel string

	// TranscriptionModel is the speech-to-text model.
	// Example: "whisper-1"
	TranscriptionModel string

	// Seed is passed to chat calls for reproducible output.
	// Default: 42
	Seed int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat and transcription service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimensions sets the fixed embedding dimensionality.
func WithEmbeddingDimensions(dimensions int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dimensions
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithTranscriptionModel sets the transcription model identifier.
func WithTranscriptionModel(model string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionModel = model
	}
}

// WithSeed sets the sampling seed for chat calls.
func WithSeed(seed int) ConfigOption {
	return func(c *Config) {
		c.Seed = seed
	}
}

// DefaultConfig returns a Config with defaults for the hosted OpenAI API.
// Both embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "https://api.openai.com/v1"
	return &Config{
		EmbeddingHost:      defaultHost,
		ChatHost:           defaultHost,
		Token:              "none",
		EmbeddingModel:     "text-embedding-3-large",
		ChatModel:          "gpt-4o",
		TranscriptionModel: "whisper-1",
		Seed:               42,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithEmbeddingDimensions(256),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation. Every failure wraps
// core.ErrConfiguration.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: ai config: EmbeddingHost is required", core.ErrConfiguration)
	}
	if c.ChatHost == "" {
		return fmt.Errorf("%w: ai config: ChatHost is required", core.ErrConfiguration)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: ai config: EmbeddingModel is required", core.ErrConfiguration)
	}
	if c.EmbeddingDimensions < 0 {
		return fmt.Errorf("%w: ai config: EmbeddingDimensions cannot be negative", core.ErrConfiguration)
	}
	if c.ChatModel == "" {
		return fmt.Errorf("%w: ai config: ChatModel is required", core.ErrConfiguration)
	}
	if c.TranscriptionModel == "" {
		return fmt.Errorf("%w: ai config: TranscriptionModel is required", core.ErrConfiguration)
	}
	return nil
}
