package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vidsearch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseTranscription = `{
  "task": "transcribe",
  "language": "english",
  "duration": 4.5,
  "text": "Hello there. General Kenobi.",
  "segments": [
    {"id": 0, "seek": 0, "start": 0.0, "end": 2.0, "text": " Hello there."},
    {"id": 1, "seek": 0, "start": 2.0, "end": 4.5, "text": " General Kenobi."}
  ]
}`

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3fake"), 0o644))
	return path
}

func TestTranscriber_Transcribe(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"), r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseTranscription))
	}))
	defer srv.Close()

	cfg := ai.NewConfig(ai.WithHost(srv.URL), ai.WithToken("test"))
	tr, err := newTranscriber(cfg, fastPolicy())
	require.NoError(t, err)

	got, err := tr.Transcribe(context.Background(), writeAudio(t), ai.TranscribeOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Hello there. General Kenobi.", got.Text)
	assert.Equal(t, "english", got.Language)
	assert.InDelta(t, 4.5, got.Duration, 1e-9)
	assert.Equal(t, []ai.Segment{
		{Start: 0, End: 2, Text: "Hello there."},
		{Start: 2, End: 4.5, Text: "General Kenobi."},
	}, got.Segments)
	assert.Equal(t, int32(1), requests.Load())
}

func TestTranscriber_RetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(verboseTranscription))
	}))
	defer srv.Close()

	cfg := ai.NewConfig(ai.WithHost(srv.URL), ai.WithToken("test"))
	tr, err := newTranscriber(cfg, fastPolicy())
	require.NoError(t, err)

	got, err := tr.Transcribe(context.Background(), writeAudio(t), ai.TranscribeOptions{})
	require.NoError(t, err)
	assert.Len(t, got.Segments, 2)
	assert.Equal(t, int32(2), requests.Load())
}

func TestTranscriber_DoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad audio", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := ai.NewConfig(ai.WithHost(srv.URL), ai.WithToken("test"))
	tr, err := newTranscriber(cfg, fastPolicy())
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), writeAudio(t), ai.TranscribeOptions{})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, int32(1), requests.Load())
}
