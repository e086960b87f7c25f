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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/libris"
	"github.com/poiesic/libris/config"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/ingestion"
	"github.com/poiesic/libris/search"
	"github.com/poiesic/libris/service"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "libris",
		Usage: "Provider-aware PDF ingestion and semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default: ./libris.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest book PDFs by URL",
				ArgsUsage: "[url ...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "File with one book URL per line",
					},
					&cli.BoolFlag{
						Name:  "retry-failed",
						Usage: "Re-run exactly the URLs currently in the failed set",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N books",
						Value: 1,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search ingested books",
				ArgsUsage: "query",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Provider override; must match the configured provider",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Show per-stage search diagnostics",
					},
				},
			},
			{
				Name:   "failed",
				Usage:  "List books whose ingestion failed",
				Action: failedCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP search service",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address (overrides config)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(c *cli.Context) error {
	// Missing .env is fine; the config names the key variable.
	_ = godotenv.Load()

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

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func openLibrary(c *cli.Context) (*libris.Library, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return libris.Open(cfg)
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	pipeline, err := lib.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	var outcomes []*ingestion.Outcome
	if c.Bool("retry-failed") {
		outcomes, err = pipeline.RetryFailed(ctx)
		if err != nil {
			return fmt.Errorf("listing failed books: %w", err)
		}
	} else {
		urls := c.Args().Slice()
		if file := c.String("file"); file != "" {
			fromFile, err := readURLFile(file)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs given: pass them as arguments or via --file")
		}

		tracker := ingestion.NewProgressTracker(os.Stderr, len(urls), c.Int("report-interval"))
		outcomes = pipeline.RunBatchWithProgress(ctx, urls, tracker)
	}

	summary := ingestion.Summarize(outcomes)
	fmt.Printf("done: %d, skipped: %d, failed: %d\n",
		summary.Done, summary.Skipped, summary.Failed)

	for _, outcome := range outcomes {
		if outcome.State == ingestion.StateFailed {
			fmt.Printf("  FAILED %s (%s): %v\n", outcome.URL, outcome.Category, outcome.Err)
		}
	}

	if summary.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("query is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	searcher, err := lib.NewSearcher()
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &stderrMonitor{}
	}

	results, err := searcher.SearchWithMonitor(c.Context, query, c.String("provider"), monitor)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d: %s [%0.3f]\n", i+1, result.Title, result.MinDistance)
		fmt.Printf("   %s\n", result.Text)
		fmt.Printf("   %s (%d hits)\n", result.ExternalRef, result.Hits)
		if c.Bool("verbose") {
			fmt.Printf("   internal: %s\n", result.InternalRef)
		}
	}
	return nil
}

func failedCommand(c *cli.Context) error {
	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	records, err := lib.FailedBookRepository().List(c.Context)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no failed books")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s\n  category: %s, attempts: %d, last: %s\n  %s\n",
			record.URL, record.Category, record.Attempts,
			record.UpdatedAt.Format("2006-01-02 15:04:05"), record.LastError)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Service.Addr = addr
	}

	lib, err := libris.Open(cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	searcher, err := lib.NewSearcher()
	if err != nil {
		return err
	}

	svc, err := service.New(searcher)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.ListenAndServe(ctx, cfg.Service.Addr)
}

// stderrMonitor prints each search stage for --verbose runs.
type stderrMonitor struct{}

var _ search.SearchMonitor = (*stderrMonitor)(nil)

func (m *stderrMonitor) Start(query string) {
	fmt.Fprintf(os.Stderr, "query: %q\n", query)
}

func (m *stderrMonitor) AfterQueryEmbedding(vector []float32) {
	fmt.Fprintf(os.Stderr, "embedded query: %d dimensions\n", len(vector))
}

func (m *stderrMonitor) AfterSimilaritySearch(hits []*core.ChunkHit) {
	fmt.Fprintf(os.Stderr, "similarity hits: %d\n", len(hits))
	for _, hit := range hits {
		fmt.Fprintf(os.Stderr, "  book %d page %d ordinal %d [%0.3f]\n",
			hit.Chunk.BookId, hit.Chunk.Page, hit.Chunk.Ordinal, hit.Distance)
	}
}

func (m *stderrMonitor) AfterGrouping(results []*core.AggregatedResult) {
	fmt.Fprintf(os.Stderr, "books matched: %d\n", len(results))
}

func (m *stderrMonitor) Finish(results []*core.AggregatedResult) {
	fmt.Fprintf(os.Stderr, "returning %d results\n", len(results))
}
