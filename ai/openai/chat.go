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
	"context"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Chat implements ai.ChatModel using OpenAI-compatible chat APIs.
type Chat struct {
	client llms.Model
	seed   int
	policy retry.Policy
	logger *slog.Logger
}

// newChat is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChat(config *ai.Config, policy retry.Policy) (*Chat, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newChatWithModel(client, config.Seed, policy), nil
}

func newChatWithModel(client llms.Model, seed int, policy retry.Policy) *Chat {
	logger := slog.Default().With("component", "openai-chat")
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &Chat{
		client: client,
		seed:   seed,
		policy: policy,
		logger: logger,
	}
}

// NewChat creates a new chat model using the provided configuration and the
// default retry policy.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChat(config *ai.Config) (ai.ChatModel, error) {
	return newChat(config, retry.DefaultPolicy(IsTransient))
}

// Invoke returns the completion for a prompt. Transient failures are
// retried according to the chat's retry policy.
func (c *Chat) Invoke(ctx context.Context, prompt ai.Prompt, opts ...ai.CallOption) (string, error) {
	messages, err := formatMessages(prompt)
	if err != nil {
		return "", err
	}
	callOpts := c.callOptions(opts)

	return retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		response, err := c.client.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return "", err
		}
		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return "", ErrEmptyResponse
		}
		return response.Choices[0].Content, nil
	})
}

// Stream returns completion fragments as the model produces them. The
// request starts when iteration begins. Transient failures are retried
// only until the first fragment arrives; after that any error ends the
// sequence. Breaking out of the loop cancels the request.
func (c *Chat) Stream(ctx context.Context, prompt ai.Prompt, opts ...ai.CallOption) (iter.Seq2[string, error], error) {
	messages, err := formatMessages(prompt)
	if err != nil {
		return nil, err
	}
	callOpts := c.callOptions(opts)

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string)
		result := make(chan error, 1)

		go func() {
			defer close(chunks)
			result <- c.stream(ctx, messages, callOpts, chunks)
		}()

		for chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if err := <-result; err != nil {
			yield("", err)
		}
	}, nil
}

func (c *Chat) stream(ctx context.Context, messages []llms.MessageContent, callOpts []llms.CallOption, chunks chan<- string) error {
	var started atomic.Bool

	policy := c.policy
	retryable := policy.Retryable
	policy.Retryable = func(err error) bool {
		if started.Load() {
			return false
		}
		return retryable == nil || retryable(err)
	}

	onChunk := func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		started.Store(true)
		select {
		case chunks <- string(chunk):
			return nil
		case <-ctx.Done():
			return errStreamStopped
		}
	}

	opts := append(callOpts[:len(callOpts):len(callOpts)], llms.WithStreamingFunc(onChunk))
	return retry.DoErr(ctx, policy, func(ctx context.Context) error {
		_, err := c.client.GenerateContent(ctx, messages, opts...)
		return err
	})
}

func (c *Chat) callOptions(opts []ai.CallOption) []llms.CallOption {
	o := ai.ApplyCallOptions(opts...)

	seed := c.seed
	if o.Seed != nil {
		seed = *o.Seed
	}
	callOpts := []llms.CallOption{llms.WithSeed(seed)}
	if o.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*o.Temperature))
	}
	if o.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.MaxTokens))
	}
	return callOpts
}

// formatMessages converts a prompt into chat messages. A text prompt becomes
// one user turn carrying the text and any images. A message list is passed
// through, with images attached as one trailing user turn.
func formatMessages(prompt ai.Prompt) ([]llms.MessageContent, error) {
	if err := prompt.Validate(); err != nil {
		return nil, err
	}

	imageParts := make([]llms.ContentPart, 0, len(prompt.Images))
	for _, img := range prompt.Images {
		url, err := imageDataURL(img)
		if err != nil {
			return nil, err
		}
		imageParts = append(imageParts, llms.ImageURLPart(url))
	}

	if prompt.Text != "" {
		parts := append([]llms.ContentPart{llms.TextPart(prompt.Text)}, imageParts...)
		return []llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}}, nil
	}

	messages := make([]llms.MessageContent, 0, len(prompt.Messages)+1)
	for _, m := range prompt.Messages {
		messages = append(messages, llms.MessageContent{
			Role:  chatRole(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	if len(imageParts) > 0 {
		messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: imageParts})
	}
	return messages, nil
}

func chatRole(r ai.Role) llms.ChatMessageType {
	switch r {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
