package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultFFmpeg is the ffmpeg binary looked up on PATH.
const DefaultFFmpeg = "ffmpeg"

// AudioExtractor writes the audio track of a video to an mp3 file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// FFmpegExtractor extracts audio by running ffmpeg.
type FFmpegExtractor struct {
	// Binary is the ffmpeg executable. Default is DefaultFFmpeg.
	Binary string
}

var _ AudioExtractor = (*FFmpegExtractor)(nil)

// ExtractAudio drops the video stream and encodes the audio as mp3,
// overwriting audioPath.
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	binary := e.Binary
	if binary == "" {
		binary = DefaultFFmpeg
	}

	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w: %s", ErrAudioExtraction, videoPath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
