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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
)

// processor is an internal interface for turning one video into a document.
type processor interface {
	// process loads the document for the video at path.
	process(ctx context.Context, path string) (loaded, error)
}

// loaded is the outcome of processing one video.
type loaded struct {
	doc core.Document
	// cached is true when the document came from an existing sidecar.
	cached bool
}

// videoProcessor transcribes and summarizes videos, memoizing the result
// in checksum-named sidecars.
type videoProcessor struct {
	transcriber ai.Transcriber
	chat        ai.ChatModel
	extractor   AudioExtractor
	tempDir     string
	baseDir     string
	language    string
	logger      *slog.Logger
}

var _ processor = (*videoProcessor)(nil)

func (p *videoProcessor) process(ctx context.Context, path string) (loaded, error) {
	if !IsVideo(path) {
		return loaded{}, fmt.Errorf("%w: %s", ErrUnsupportedVideo, path)
	}

	checksum, err := Checksum(path)
	if err != nil {
		return loaded{}, err
	}
	logger := p.logger.With("video", path, "checksum", checksum)

	existing, err := loadSidecar(p.tempDir, checksum)
	if err != nil {
		return loaded{}, err
	}
	if existing != nil {
		logger.Debug("reusing metadata sidecar")
		return loaded{doc: existing.Document(), cached: true}, nil
	}

	audioPath := filepath.Join(p.tempDir, checksum+".mp3")
	if err := p.extractor.ExtractAudio(ctx, path, audioPath); err != nil {
		return loaded{}, err
	}
	defer os.Remove(audioPath)

	transcription, err := p.transcriber.Transcribe(ctx, audioPath, ai.TranscribeOptions{Language: p.language})
	if err != nil {
		return loaded{}, fmt.Errorf("transcribe %s: %w", path, err)
	}
	logger.Debug("transcribed video", "segments", len(transcription.Segments), "duration", transcription.Duration)

	reply, err := p.chat.Invoke(ctx, buildSummaryPrompt(transcription), ai.WithTemperature(0))
	if err != nil {
		return loaded{}, fmt.Errorf("summarize %s: %w", path, err)
	}

	title := Title(path)
	displayText := parseSummary(reply)
	if displayText == "" {
		// empty summary: fall back to the transcript, then the title
		displayText = transcription.Text
		if displayText == "" {
			displayText = title
		}
	}

	sidecar := &Sidecar{
		Text: displayText,
		Metadata: SidecarMetadata{
			Title:       title,
			Transcript:  transcription.Text,
			DisplayText: displayText,
			SourceURL:   sourceURL(p.baseDir, path),
			Checksum:    checksum,
		},
	}
	if err := saveSidecar(p.tempDir, sidecar); err != nil {
		return loaded{}, fmt.Errorf("save sidecar for %s: %w", path, err)
	}

	logger.Info("processed video", "title", title)
	return loaded{doc: sidecar.Document()}, nil
}
