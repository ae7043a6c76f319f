package ingestion

import "errors"

var (
	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrUnsupportedVideo is returned for files that are not .mov or .mp4.
	ErrUnsupportedVideo = errors.New("unsupported video format")

	// ErrAudioExtraction is returned when the audio track cannot be extracted.
	ErrAudioExtraction = errors.New("audio extraction failed")

	// ErrInvalidSidecar is returned when a metadata sidecar cannot be decoded.
	ErrInvalidSidecar = errors.New("invalid metadata sidecar")
)
