package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
)

// TempDirName is the folder below the working directory that holds
// sidecars and intermediate audio files.
const TempDirName = ".tmp"

// Indexer receives the documents produced by ingestion.
type Indexer interface {
	AddDocuments(ctx context.Context, docs []core.Document) error
}

// Progress receives per-video progress updates.
// *reembed.ProgressTracker satisfies it.
type Progress interface {
	Start(total int)
	Increment(delta int)
	Finish()
}

// Report summarizes one ingestion run.
type Report struct {
	// Found is the number of video files discovered.
	Found int
	// Processed is the number of videos transcribed and summarized.
	Processed int
	// Cached is the number of videos loaded from existing sidecars.
	Cached int
	// Failed lists the videos that could not be loaded.
	Failed []string
	// Indexed is the number of documents handed to the index.
	Indexed int
}

// Pipeline orchestrates the ingestion of video files into an index.
// Videos are loaded concurrently; documents are indexed in one batch.
type Pipeline struct {
	index     Indexer
	pool      *ants.Pool
	proc      processor
	extractor AudioExtractor
	tempDir   string
	baseDir   string
	language  string
	progress  Progress
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of videos processed concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithAudioExtractor replaces the ffmpeg audio extractor.
func WithAudioExtractor(extractor AudioExtractor) Option {
	return func(p *Pipeline) error {
		if extractor != nil {
			p.extractor = extractor
		}
		return nil
	}
}

// WithBaseDir sets the directory source_url paths are relative to.
// Default is the process working directory.
func WithBaseDir(dir string) Option {
	return func(p *Pipeline) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		p.baseDir = abs
		return nil
	}
}

// WithLanguage passes an ISO-639-1 language hint to transcription.
func WithLanguage(language string) Option {
	return func(p *Pipeline) error {
		p.language = language
		return nil
	}
}

// WithProgress reports per-video progress of LoadVideos.
func WithProgress(progress Progress) Option {
	return func(p *Pipeline) error {
		p.progress = progress
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline. workingDir must exist;
// sidecars are kept in workingDir/.tmp.
func NewPipeline(index Indexer, provider ai.AIProvider, workingDir string, opts ...Option) (*Pipeline, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if info, err := os.Stat(workingDir); workingDir == "" || err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: working dir unavailable: %q", core.ErrConfiguration, workingDir)
	}

	tempDir := filepath.Join(workingDir, TempDirName)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", tempDir, err)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		index:     index,
		pool:      pool,
		extractor: &FFmpegExtractor{},
		tempDir:   tempDir,
		baseDir:   baseDir,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create the processor after options are applied (so it gets final config)
	p.proc = &videoProcessor{
		transcriber: provider.Transcriber(),
		chat:        provider.ChatModel(),
		extractor:   p.extractor,
		tempDir:     tempDir,
		baseDir:     p.baseDir,
		language:    p.language,
		logger:      p.logger,
	}

	return p, nil
}

// TempDir returns the directory holding sidecars.
func (p *Pipeline) TempDir() string {
	return p.tempDir
}

// LoadVideo returns the document for a single video, reusing its sidecar
// when one exists.
func (p *Pipeline) LoadVideo(ctx context.Context, path string) (core.Document, error) {
	result, err := p.proc.process(ctx, path)
	if err != nil {
		return core.Document{}, err
	}
	return result.doc, nil
}

// LoadVideos loads every video below root on the worker pool. Documents are
// returned in the lexical order of their paths. Videos that fail are
// logged, listed in the report and left out; their errors are joined into
// the returned error.
func (p *Pipeline) LoadVideos(ctx context.Context, root string) ([]core.Document, Report, error) {
	videos, err := FindVideos(root)
	if err != nil {
		return nil, Report{}, err
	}
	report := Report{Found: len(videos)}
	p.logger.Info("loading videos", "root", root, "count", len(videos))

	if p.progress != nil {
		p.progress.Start(len(videos))
		defer p.progress.Finish()
	}

	results := make([]loaded, len(videos))
	errs := make([]error, len(videos))

	var wg sync.WaitGroup
	for i, path := range videos {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = p.proc.process(ctx, path)
			if p.progress != nil {
				p.progress.Increment(1)
			}
		}
		if err := p.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	docs := make([]core.Document, 0, len(videos))
	var failures []error
	for i, path := range videos {
		if errs[i] != nil {
			p.logger.Error("error loading video", "video", path, "err", errs[i])
			report.Failed = append(report.Failed, path)
			failures = append(failures, fmt.Errorf("%s: %w", path, errs[i]))
			continue
		}
		if results[i].cached {
			report.Cached++
		} else {
			report.Processed++
		}
		docs = append(docs, results[i].doc)
	}

	return docs, report, errors.Join(failures...)
}

// Ingest loads every video below root and adds the documents to the index.
// Documents of the videos that loaded are indexed even when others failed.
func (p *Pipeline) Ingest(ctx context.Context, root string) (Report, error) {
	docs, report, loadErr := p.LoadVideos(ctx, root)
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	if len(docs) > 0 {
		if err := p.index.AddDocuments(ctx, docs); err != nil {
			return report, errors.Join(loadErr, err)
		}
		report.Indexed = len(docs)
	}

	p.logger.Info("ingestion finished",
		"found", report.Found,
		"processed", report.Processed,
		"cached", report.Cached,
		"failed", len(report.Failed),
		"indexed", report.Indexed)
	return report, loadErr
}

// IngestFile loads one video and adds its document to the index.
func (p *Pipeline) IngestFile(ctx context.Context, path string) error {
	doc, err := p.LoadVideo(ctx, path)
	if err != nil {
		return err
	}
	return p.index.AddDocuments(ctx, []core.Document{doc})
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
