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


package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix of every environment variable.
	EnvPrefix = "VIDSEARCH"

	// DefaultFile is the config file read when none is named.
	DefaultFile = "vidsearch.yaml"

	// StoreDirName is the folder below the working directory holding the
	// vector store.
	StoreDirName = "vector_data"

	// SidecarDirName is the folder below the working directory holding
	// metadata sidecars and intermediate audio.
	SidecarDirName = ".tmp"
)

// Config is the application configuration.
type Config struct {
	// VideoDir is the directory scanned for videos.
	VideoDir string `yaml:"video_dir" envconfig:"VIDEO_DIR"`

	// WorkingDir holds the vector store and the sidecars.
	WorkingDir string `yaml:"working_dir" envconfig:"WORKING_DIR"`

	// CollectionName names the vector collection. Required.
	CollectionName string `yaml:"collection_name" envconfig:"COLLECTION_NAME"`

	// EmbeddingModel is the embedding model identifier. Required.
	EmbeddingModel string `yaml:"embedding_model" envconfig:"EMBEDDING_MODEL"`

	// EmbeddingDimension is the vector size of the collection and the
	// dimensionality requested from the embedding model. Required.
	EmbeddingDimension int `yaml:"embedding_dimension" envconfig:"EMBEDDING_DIMENSION"`

	// LLMModel summarizes transcripts and extracts image keywords.
	LLMModel string `yaml:"llm_model" envconfig:"LLM_MODEL"`

	// ASRModel transcribes audio.
	ASRModel string `yaml:"asr_model" envconfig:"ASR_MODEL"`

	// MaxSearchResults bounds the hits fetched from the index per query.
	MaxSearchResults int `yaml:"max_search_results" envconfig:"MAX_SEARCH_RESULTS"`

	// SearchThreshold is the default minimum score of search results.
	SearchThreshold float32 `yaml:"search_threshold" envconfig:"SEARCH_THRESHOLD"`

	// Seed is passed to chat calls.
	Seed int `yaml:"seed" envconfig:"SEED"`

	// Language is an optional ISO-639-1 hint for transcription.
	Language string `yaml:"language" envconfig:"LANGUAGE"`

	// Workers is the number of videos processed concurrently. Zero picks
	// half the CPUs.
	Workers int `yaml:"workers" envconfig:"WORKERS"`

	// BaseURL is the OpenAI-compatible API endpoint.
	BaseURL string `yaml:"openai_base_url" envconfig:"OPENAI_BASE_URL"`

	// APIKey authenticates against BaseURL.
	APIKey string `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		VideoDir:         "videos",
		WorkingDir:       "data",
		LLMModel:         "gpt-4o",
		ASRModel:         "whisper-1",
		MaxSearchResults: 10,
		SearchThreshold:  0.45,
		Seed:             42,
		BaseURL:          "https://api.openai.com/v1",
	}
}

// Load reads the configuration.
// Priority: environment > file > defaults.
// An empty path reads DefaultFile when it exists; a named file must exist.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", core.ErrConfiguration, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrConfiguration, path, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", core.ErrConfiguration, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete. Every failure wraps
// core.ErrConfiguration.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.WorkingDir) == "" {
		problems = append(problems, "working_dir is required")
	}
	if strings.TrimSpace(c.CollectionName) == "" {
		problems = append(problems, "collection_name is required")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		problems = append(problems, "embedding_model is required")
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, "embedding_dimension must be positive")
	}
	if c.LLMModel == "" {
		problems = append(problems, "llm_model is required")
	}
	if c.ASRModel == "" {
		problems = append(problems, "asr_model is required")
	}
	if c.MaxSearchResults <= 0 {
		problems = append(problems, "max_search_results must be positive")
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		problems = append(problems, "search_threshold must be between 0 and 1")
	}
	if c.Workers < 0 {
		problems = append(problems, "workers cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// StorePath is the directory of the vector store.
func (c *Config) StorePath() string {
	return filepath.Join(c.WorkingDir, StoreDirName)
}

// SidecarDir is the directory of the metadata sidecars.
func (c *Config) SidecarDir() string {
	return filepath.Join(c.WorkingDir, SidecarDirName)
}

// AIConfig maps the configuration onto the AI provider settings. Chat,
// transcription and embeddings share one endpoint.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.BaseURL),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithEmbeddingDimensions(c.EmbeddingDimension),
		ai.WithChatModel(c.LLMModel),
		ai.WithTranscriptionModel(c.ASRModel),
		ai.WithSeed(c.Seed),
	}
	if c.APIKey != "" {
		opts = append(opts, ai.WithToken(c.APIKey))
	}
	return ai.NewConfig(opts...)
}
