package ingestion

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a video file must stay unchanged before it is
// ingested. Copies in progress emit a stream of write events.
const DefaultSettle = 2 * time.Second

// FileIngester ingests a single video file, or every video below a
// directory. *Pipeline satisfies it.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) error
	Ingest(ctx context.Context, root string) (Report, error)
}

// Watcher ingests video files below a directory as they are created or
// modified. Files are ingested one at a time on the goroutine running Run.
type Watcher struct {
	ingester  FileIngester
	root      string
	settle    time.Duration
	recovered func() bool
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettle sets how long a file must be quiet before it is ingested.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithRecovery sets a check run after every ingested file. When it
// reports true the index lost its contents and the whole tree below root
// is ingested again.
func WithRecovery(recovered func() bool) WatcherOption {
	return func(w *Watcher) {
		w.recovered = recovered
	}
}

// WithWatchLogger sets a custom logger.
// Default is slog.Default().
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for the videos below root.
func NewWatcher(ingester FileIngester, root string, opts ...WatcherOption) (*Watcher, error) {
	if ingester == nil {
		return nil, ErrIndexRequired
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		ingester: ingester,
		root:     abs,
		settle:   DefaultSettle,
		logger:   slog.Default(),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher", "root", abs)
	return w, nil
}

// Run watches until ctx is cancelled. Failures to ingest a file are logged
// and do not stop the watcher. A Watcher runs at most once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	defer w.stopTimers()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching for videos")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)
		case path := <-w.ready:
			err := w.ingester.IngestFile(ctx, path)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				w.logger.Error("error ingesting video", "video", path, "err", err)
			} else {
				w.logger.Info("ingested video", "video", path)
			}
			w.resync(ctx)
		}
	}
}

// resync re-ingests the whole tree if the index was rebuilt.
func (w *Watcher) resync(ctx context.Context) {
	if w.recovered == nil || !w.recovered() {
		return
	}
	w.logger.Warn("index was rebuilt, ingesting all videos again")
	report, err := w.ingester.Ingest(ctx, w.root)
	if err != nil {
		w.logger.Error("error re-ingesting videos", "indexed", report.Indexed, "err", err)
		return
	}
	w.logger.Info("re-ingested videos", "indexed", report.Indexed, "failed", len(report.Failed))
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			w.cancel(ev.Name)
		}
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// new directory: watch it and pick up anything already inside
		if err := w.addTree(fw, ev.Name); err != nil {
			w.logger.Warn("failed to watch directory", "path", ev.Name, "err", err)
		}
		filepath.WalkDir(ev.Name, func(path string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && IsVideo(path) {
				w.schedule(path)
			}
			return nil
		})
		return
	}
	if IsVideo(ev.Name) {
		w.schedule(ev.Name)
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// schedule (re)starts the settle timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
