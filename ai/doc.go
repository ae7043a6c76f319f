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


// Package ai provides abstractions for the model services vidsearch talks to.
//
// Three services are modelled:
//
//   - Embedder: turns text into vectors for similarity search
//   - ChatModel: produces summaries and image keywords
//   - Transcriber: converts extracted audio to timestamped text
//
// AIProvider aggregates them behind a single lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behaviour and inspect recorded
// calls.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingDimensions(256))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"hello"},
//	    ai.EmbedOptions{Model: cfg.EmbeddingModel, Dimensions: 256})
//
// # Errors
//
// Configuration problems wrap core.ErrConfiguration. Malformed prompts wrap
// core.ErrValidation. Failures worth retrying are recognised by
// openai.IsTransient; test doubles signal them by wrapping ErrTransient.
package ai
