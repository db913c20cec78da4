package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/async"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/export"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/ocr"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type summary struct {
	mu          sync.Mutex
	processed   int
	dedup       int
	needsReview int
	failed      int
}

func (s *summary) record(res *pipeline.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.failed++
	case res.Deduplicated:
		s.dedup++
	case res.Status == constants.DocumentStatusNeedsReview:
		s.needsReview++
		s.processed++
	default:
		s.processed++
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir        = flag.String("dir", "", "directory to process invoices from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		skipHidden = flag.Bool("skip-hidden", true, "skip dot-files and dot-directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "invoices.xlsx")
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ":memory:"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(db, logger)
	proc := pipeline.NewProcessor(
		ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger),
		extract.NewExtractor(extract.WithLogger(logger)),
		docs,
		logger,
	)

	ing := ingest.NewIngestor(logger)
	sources, stats, err := ing.IngestDirectory(*dir, *skipHidden)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}

	byPath := make(map[string]ingest.Source, len(sources))
	for _, s := range sources {
		byPath[s.Path] = s
	}

	pending := 0
	for _, s := range sources {
		if !s.Deduplicated && s.Err == "" {
			pending++
		}
	}
	bar := newProgressBar(pending)

	var sum summary
	queue := async.NewQueue(func(ctx context.Context, job async.Job) error {
		res, err := proc.ProcessFile(ctx, byPath[job.Path])
		sum.record(res, err)
		if addErr := bar.Add(1); addErr != nil {
			logger.Warn("failed to update progress bar", "error", addErr)
		}
		return err
	}, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	start := time.Now()
	for _, s := range sources {
		// Same bytes already seen in this walk; the first copy covers it.
		if s.Deduplicated || s.Err != "" {
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{Path: s.Path, HashHex: s.HashHex}); err != nil {
			logger.Error("enqueue failed", "path", s.Path, "error", err)
		}
	}
	queue.Shutdown(ctx)
	if err := bar.Finish(); err != nil {
		logger.Warn("failed to finish progress bar", "error", err)
	}

	xlsx, err := export.NewService(docs, logger).ExportDocumentsXLSX(ctx, repository.ListFilter{})
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Scanned:       %d files (%d matched, %d duplicates in walk)\n", stats.Scanned, stats.Matched, stats.Deduplicated)
	fmt.Printf("Processed:     %d\n", sum.processed)
	fmt.Printf("Needs review:  %d\n", sum.needsReview)
	fmt.Printf("Already known: %d\n", sum.dedup)
	fmt.Printf("Failed:        %d\n", sum.failed+int(stats.Failed))
	fmt.Printf("Elapsed:       %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Workbook:      %s\n", *out)
}

// newProgressBar draws on stderr so the summary on stdout stays clean.
func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Extracting invoices"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
