package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/vidsearch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVideo(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp4", true},
		{"a.MP4", true},
		{"dir/b.mov", true},
		{"b.Mov", true},
		{"c.mkv", false},
		{"mp4", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVideo(tt.path))
		})
	}
}

func TestFindVideos(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.mp4"), "b")
	writeFile(t, filepath.Join(root, "a.MOV"), "a")
	writeFile(t, filepath.Join(root, "nested", "deeper", "c.mp4"), "c")
	writeFile(t, filepath.Join(root, "readme.md"), "x")

	videos, err := FindVideos(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.MOV"),
		filepath.Join(root, "b.mp4"),
		filepath.Join(root, "nested", "deeper", "c.mp4"),
	}, videos)

	t.Run("single file", func(t *testing.T) {
		videos, err := FindVideos(filepath.Join(root, "b.mp4"))
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "b.mp4")}, videos)

		_, err = FindVideos(filepath.Join(root, "readme.md"))
		assert.ErrorIs(t, err, ErrUnsupportedVideo)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindVideos(filepath.Join(root, "missing"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"), "same bytes")
	writeFile(t, filepath.Join(dir, "renamed.mov"), "same bytes")
	writeFile(t, filepath.Join(dir, "other.mp4"), "other bytes")

	a, err := Checksum(filepath.Join(dir, "a.mp4"))
	require.NoError(t, err)
	assert.Len(t, a, checksumSize*2)

	renamed, err := Checksum(filepath.Join(dir, "renamed.mov"))
	require.NoError(t, err)
	assert.Equal(t, a, renamed, "checksum depends on content only")

	other, err := Checksum(filepath.Join(dir, "other.mp4"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	_, err = Checksum(filepath.Join(dir, "missing.mp4"))
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "lesson one", Title("/videos/lesson one.mp4"))
	assert.Equal(t, "archive.tar", Title("archive.tar.mov"))
}

func TestSourceURL(t *testing.T) {
	base := t.TempDir()
	assert.Equal(t, "videos/unit 1/a.mp4", sourceURL(base, filepath.Join(base, "videos", "unit 1", "a.mp4")))
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59.99, "00:00:59"},
		{61, "00:01:01"},
		{3725.5, "01:02:05"},
		{36000, "10:00:00"},
		{-1, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimestamp(tt.seconds))
	}
}

func TestFormatSegments(t *testing.T) {
	got := formatSegments([]ai.Segment{
		{Start: 0, End: 3, Text: " Hello. "},
		{Start: 3, End: 4, Text: ""},
		{Start: 4, End: 65, Text: "World."},
	})
	assert.Equal(t, "00:00:00 - 00:00:03: Hello.\n00:00:04 - 00:01:05: World.", got)
	assert.Empty(t, formatSegments(nil))
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single block", "<summary>About cats.</summary>", "About cats."},
		{"last block wins", "<summary>draft</summary>\n<summary>\n final \n</summary>", "final"},
		{"multiline", "<summary>line one\nline two</summary>", "line one\nline two"},
		{"no block", "Just text.", "Just text."},
		{"unterminated", "<summary>open", "<summary>open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSummary(tt.text))
		})
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := &Sidecar{
		Text: "有理数的概念 & <fractions>",
		Metadata: SidecarMetadata{
			Title:       "lesson",
			Transcript:  "transcript",
			DisplayText: "有理数的概念 & <fractions>",
			SourceURL:   "videos/lesson.mp4",
			Checksum:    "abc",
		},
	}
	require.NoError(t, saveSidecar(dir, s))

	data, err := os.ReadFile(filepath.Join(dir, "abc.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "有理数的概念 & <fractions>", "written unescaped")

	loaded, err := loadSidecar(dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	doc := loaded.Document()
	assert.Equal(t, s.Text, doc.Text)
	checksum, ok := doc.Checksum()
	require.True(t, ok)
	assert.Equal(t, "abc", checksum)

	missing, err := loadSidecar(dir, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")
	_, err = loadSidecar(dir, "bad")
	assert.ErrorIs(t, err, ErrInvalidSidecar)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestFFmpegExtractor_MissingBinary(t *testing.T) {
	e := &FFmpegExtractor{Binary: filepath.Join(t.TempDir(), "no-ffmpeg")}
	err := e.ExtractAudio(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "out.mp3"))
	assert.ErrorIs(t, err, ErrAudioExtraction)
}

// recordingIngester records ingested paths and directory runs.
type recordingIngester struct {
	mu    sync.Mutex
	paths []string
	roots []string
}

func (r *recordingIngester) IngestFile(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *recordingIngester) Ingest(ctx context.Context, root string) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = append(r.roots, root)
	return Report{Indexed: len(r.paths)}, nil
}

func (r *recordingIngester) resynced() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.roots...)
}

func (r *recordingIngester) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	ingester := &recordingIngester{}
	w, err := NewWatcher(ingester, root, WithSettle(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// give the watcher time to register the root
	time.Sleep(100 * time.Millisecond)

	video := filepath.Join(root, "new.mp4")
	writeFile(t, video, "part one")
	writeFile(t, filepath.Join(root, "ignored.txt"), "text")
	require.NoError(t, os.WriteFile(video, []byte("part one and two"), 0o644))

	require.Eventually(t, func() bool {
		return len(ingester.ingested()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{video}, ingester.ingested(), "bursts of writes are ingested once")

	nested := filepath.Join(root, "unit3", "clip.MOV")
	writeFile(t, nested, "nested")

	require.Eventually(t, func() bool {
		return len(ingester.ingested()) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, nested, ingester.ingested()[1])
}

func TestWatcher_ResyncAfterRebuild(t *testing.T) {
	root := t.TempDir()
	ingester := &recordingIngester{}
	var rebuilt atomic.Bool
	var checks atomic.Int32
	w, err := NewWatcher(ingester, root,
		WithSettle(100*time.Millisecond),
		WithRecovery(func() bool {
			defer checks.Add(1)
			return rebuilt.Swap(false)
		}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(root, "first.mp4"), "one")
	require.Eventually(t, func() bool {
		return checks.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, ingester.ingested(), 1)
	assert.Empty(t, ingester.resynced(), "healthy index is not re-ingested")

	rebuilt.Store(true)
	writeFile(t, filepath.Join(root, "second.mp4"), "two")
	require.Eventually(t, func() bool {
		return len(ingester.resynced()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{w.root}, ingester.resynced())
	assert.False(t, rebuilt.Load())
}

func TestNewWatcher_RequiresIngester(t *testing.T) {
	_, err := NewWatcher(nil, t.TempDir())
	assert.ErrorIs(t, err, ErrIndexRequired)
}
