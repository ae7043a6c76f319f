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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/vidsearch"
	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/config"
	"github.com/poiesic/vidsearch/core"
	"github.com/poiesic/vidsearch/ingestion"
	"github.com/poiesic/vidsearch/reembed"
	"github.com/urfave/cli/v2"
)

// Overridden by tests.
var (
	engineOptions    []vidsearch.EngineOption
	ingestionOptions []ingestion.Option
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vidsearch",
		Usage: "Semantic search over video collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default: ./" + config.DefaultFile + " when present)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Transcribe, summarize and index every video below the video directory",
				Action: ingestCommand,
				Flags: []cli.Flag{
					videoDirFlag(),
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "Discard the index before ingesting",
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Ingest existing videos, then index new or changed videos as they appear",
				Action: watchCommand,
				Flags: []cli.Flag{
					videoDirFlag(),
					&cli.DurationFlag{
						Name:  "settle",
						Usage: "How long a file must stay unchanged before it is ingested",
						Value: ingestion.DefaultSettle,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find videos matching keywords",
				ArgsUsage: "KEYWORD [KEYWORD...]",
				Action:    searchCommand,
				Flags:     []cli.Flag{thresholdFlag()},
			},
			{
				Name:      "image-search",
				Usage:     "Find videos matching keywords derived from an image",
				ArgsUsage: "IMAGE",
				Action:    imageSearchCommand,
				Flags:     []cli.Flag{thresholdFlag()},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every indexed video with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of videos to embed in each batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N videos",
						Value: 100,
					},
				},
			},
		},
	}
}

func videoDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "video-dir",
		Aliases: []string{"d"},
		Usage:   "Directory scanned for .mp4 and .mov files (overrides video_dir)",
	}
}

func thresholdFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:    "threshold",
		Aliases: []string{"t"},
		Usage:   "Minimum similarity score (overrides search_threshold)",
	}
}

// openEngine loads the configuration, applies command line overrides and
// opens the engine.
func openEngine(c *cli.Context) (*vidsearch.Engine, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("video-dir"); dir != "" {
		cfg.VideoDir = dir
	}
	if c.IsSet("threshold") {
		cfg.SearchThreshold = float32(c.Float64("threshold"))
	}

	engine, err := vidsearch.NewEngine(c.Context, cfg, engineOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return engine, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()
	cfg := engine.Config()

	if c.Bool("rebuild") {
		if err := engine.ResetIndex(ctx); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}

	progress := reembed.NewProgressTracker(c.App.ErrWriter, "videos", 1)
	pipeline, err := engine.NewIngestionPipeline(append([]ingestion.Option{ingestion.WithProgress(progress)}, ingestionOptions...)...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	fmt.Fprintf(c.App.ErrWriter, "Video directory: %s\n", cfg.VideoDir)
	fmt.Fprintf(c.App.ErrWriter, "Working directory: %s\n", cfg.WorkingDir)
	fmt.Fprintf(c.App.ErrWriter, "Collection: %s\n", cfg.CollectionName)
	fmt.Fprintln(c.App.ErrWriter)

	report, err := pipeline.Ingest(ctx, cfg.VideoDir)
	printReport(c.App.Writer, report)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func printReport(w io.Writer, r ingestion.Report) {
	fmt.Fprintf(w, "Found %d videos: %d processed, %d cached, %d failed, %d indexed\n",
		r.Found, r.Processed, r.Cached, len(r.Failed), r.Indexed)
	for _, path := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", path)
	}
}

func watchCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()
	cfg := engine.Config()

	pipeline, err := engine.NewIngestionPipeline(ingestionOptions...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.Ingest(ctx, cfg.VideoDir)
	printReport(c.App.Writer, report)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("initial ingestion incomplete", "err", err)
	}

	watcher, err := ingestion.NewWatcher(pipeline, cfg.VideoDir,
		ingestion.WithSettle(c.Duration("settle")),
		ingestion.WithRecovery(engine.TakeRebuilt))
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// parseKeywords accepts keywords as separate arguments, comma separated,
// or both.
func parseKeywords(args []string) []string {
	var keywords []string
	for _, arg := range args {
		for _, kw := range strings.Split(arg, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}

func searchCommand(c *cli.Context) error {
	keywords := parseKeywords(c.Args().Slice())
	if len(keywords) == 0 {
		return fmt.Errorf("at least one keyword is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.Searcher().SearchByKeywords(c.Context, keywords, engine.Config().SearchThreshold)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printResults(c.App.Writer, results)
	return nil
}

func imageSearchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one image path is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	keywords, results, err := engine.Searcher().SearchByImage(c.Context, ai.Image{Path: c.Args().First()}, engine.Config().SearchThreshold)
	if keywords != nil {
		fmt.Fprintf(c.App.Writer, "Keywords: %s\n", strings.Join(keywords, ", "))
	}
	if err != nil {
		return fmt.Errorf("image search failed: %w", err)
	}
	printResults(c.App.Writer, results)
	return nil
}

func printResults(w io.Writer, results []core.SearchResult) {
	fmt.Fprintf(w, "Found %d videos\n", len(results))
	for i, r := range results {
		title, _ := r.Metadata["title"].(string)
		source, _ := r.Metadata["source_url"].(string)
		fmt.Fprintf(w, "%d: %s (%s)[%0.3f]\n", i+1, title, source, r.Score)
		fmt.Fprintf(w, "   %s\n", r.Text)
	}
}

func reembedCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()
	cfg := engine.Config()

	fmt.Fprintf(c.App.ErrWriter, "Index: %s\n", cfg.StorePath())
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s (%d dimensions)\n", cfg.EmbeddingModel, cfg.EmbeddingDimension)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := engine.Reembed(ctx, reembedConfig, c.App.ErrWriter); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
