package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/ocr"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
)

func main() {
	var (
		file     = flag.String("file", "", "document to extract (required; \"-\" reads text from stdin)")
		fieldsOn = flag.Bool("fields", false, "print only the extracted fields instead of the full envelope")
		timeout  = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	// stdout carries the JSON result, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	proc := pipeline.NewProcessor(
		ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger),
		extract.NewExtractor(extract.WithLogger(logger)),
		nil,
		logger,
	)

	start := time.Now()
	res, name, size, err := run(ctx, proc, *file, logger)

	var payload any
	switch {
	case err != nil:
		payload = pipeline.ErrorEnvelope(err, name, size, time.Since(start))
	case *fieldsOn:
		payload = res.Fields
	default:
		env, envErr := pipeline.BuildEnvelope(res, name, size)
		if envErr != nil {
			payload = pipeline.ErrorEnvelope(envErr, name, size, time.Since(start))
			err = envErr
		} else {
			payload = env
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(payload); encErr != nil {
		logger.Error("failed to write output", "error", encErr)
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, proc *pipeline.Processor, path string, logger *slog.Logger) (*pipeline.Result, string, int64, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "stdin", 0, fmt.Errorf("read stdin: %w", err)
		}
		res, err := proc.ProcessText(ctx, pipeline.TextInput{Text: ocr.Normalize(string(b)), FileName: "stdin.txt"})
		return res, "stdin", int64(len(b)), err
	}

	src, err := ingest.NewIngestor(logger).IngestPath(path)
	if err != nil {
		return nil, filepath.Base(path), 0, err
	}
	res, err := proc.ProcessFile(ctx, src)
	return res, filepath.Base(path), src.SizeBytes, err
}
