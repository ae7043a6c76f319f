package openai

import (
	"context"
	"log/slog"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/retry"
)

// Transcriber implements ai.Transcriber with the OpenAI audio API.
// langchaingo has no audio support, so this uses go-openai directly.
type Transcriber struct {
	client *gopenai.Client
	model  string
	policy retry.Policy
	logger *slog.Logger
}

func newTranscriber(config *ai.Config, policy retry.Policy) (*Transcriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := gopenai.DefaultConfig(config.Token)
	clientConfig.BaseURL = config.ChatHost

	logger := slog.Default().With("component", "openai-transcriber")
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &Transcriber{
		client: gopenai.NewClientWithConfig(clientConfig),
		model:  config.TranscriptionModel,
		policy: policy,
		logger: logger,
	}, nil
}

// NewTranscriber creates a new transcriber using the provided configuration
// and the default retry policy.
//
// Returns ai.Transcriber interface to enforce abstraction.
func NewTranscriber(config *ai.Config) (ai.Transcriber, error) {
	return newTranscriber(config, retry.DefaultPolicy(IsTransient))
}

// Transcribe uploads the audio file at path and returns its text with
// segment-level timestamps.
func (t *Transcriber) Transcribe(ctx context.Context, path string, opts ai.TranscribeOptions) (*ai.Transcription, error) {
	req := gopenai.AudioRequest{
		Model:       t.model,
		FilePath:    path,
		Prompt:      opts.Prompt,
		Temperature: opts.Temperature,
		Language:    opts.Language,
		Format:      gopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []gopenai.TranscriptionTimestampGranularity{
			gopenai.TranscriptionTimestampGranularitySegment,
		},
	}

	t.logger.Debug("transcribing audio", "path", path, "model", t.model)
	resp, err := retry.Do(ctx, t.policy, func(ctx context.Context) (gopenai.AudioResponse, error) {
		return t.client.CreateTranscription(ctx, req)
	})
	if err != nil {
		t.logger.Error("transcription failed", "path", path, "err", err)
		return nil, err
	}

	out := &ai.Transcription{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]ai.Segment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, ai.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return out, nil
}
