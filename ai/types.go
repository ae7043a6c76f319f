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

	"github.com/poiesic/vidsearch/core"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Image is an image attached to a prompt. Exactly one of Path or Data is set.
type Image struct {
	// Path is a file on local disk.
	Path string

	// Data holds raw image bytes.
	Data []byte
}

// Prompt is the input to a chat call. It is either plain Text or a
// sequence of Messages, optionally followed by images that are attached
// to the final user turn.
type Prompt struct {
	Text     string
	Messages []Message
	Images   []Image
}

// TextPrompt is a convenience constructor for a plain text prompt.
func TextPrompt(text string) Prompt {
	return Prompt{Text: text}
}

// Validate reports whether the prompt has a supported shape.
func (p Prompt) Validate() error {
	switch {
	case p.Text == "" && len(p.Messages) == 0:
		return fmt.Errorf("%w: %w: prompt has neither text nor messages", core.ErrValidation, core.ErrUnsupportedInput)
	case p.Text != "" && len(p.Messages) > 0:
		return fmt.Errorf("%w: %w: prompt has both text and messages", core.ErrValidation, core.ErrUnsupportedInput)
	}
	for i, img := range p.Images {
		if img.Path == "" && len(img.Data) == 0 {
			return fmt.Errorf("%w: %w: image %d has neither path nor data", core.ErrValidation, core.ErrUnsupportedInput, i)
		}
	}
	for i, m := range p.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: %w: message %d has unknown role %q", core.ErrValidation, core.ErrUnsupportedInput, i, m.Role)
		}
	}
	return nil
}

// CallOptions tune a single chat call.
type CallOptions struct {
	Temperature *float64
	Seed        *int
	MaxTokens   int
}

// CallOption is a functional option for a chat call.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

// WithCallSeed overrides the provider's configured seed for one call.
func WithCallSeed(seed int) CallOption {
	return func(o *CallOptions) {
		o.Seed = &seed
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// ApplyCallOptions folds opts into a CallOptions value.
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Segment is a timestamped span of a transcription. Times are in seconds.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Transcription is the result of speech-to-text.
type Transcription struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// TranscribeOptions tune a transcription call.
type TranscribeOptions struct {
	// Language is an ISO-639-1 hint. Empty lets the model detect it.
	Language string

	// Prompt guides spelling and style.
	Prompt string

	Temperature float32
}
