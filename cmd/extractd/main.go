package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joseph-ayodele/invoice-extract/internal/async"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
	"github.com/joseph-ayodele/invoice-extract/internal/httpapi"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/metrics"
	"github.com/joseph-ayodele/invoice-extract/internal/ocr"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
	"github.com/joseph-ayodele/invoice-extract/internal/server"
)

func main() {
	var (
		watchDir = flag.String("watch", "", "directory to watch for new documents (optional)")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "coalesce file events within this window")
	)
	flag.Parse()

	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "dialect", db.Dialect)

	docs := repository.NewDocumentRepository(db, logger)
	text := ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger)
	fields := extract.NewExtractor(extract.WithLogger(logger))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	proc := pipeline.NewProcessor(text, fields, docs, logger, pipeline.WithMetrics(m))

	gs, hs := server.NewGRPCServer(server.NewExtractionService(proc, docs, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	var queue *async.Queue
	if *watchDir != "" {
		queue, err = startWatcher(ctx, *watchDir, *debounce, cfg.Queue, proc, m, logger)
		if err != nil {
			logger.Error("failed to start watcher", "dir", *watchDir, "error", err)
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
		if err := gs.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		h := httpapi.NewHandler(proc, httpapi.Config{
			Docs:           docs,
			DB:             db,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		}, logger)
		httpSrv = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           httpapi.NewRouter(h, cfg.Server.AllowedOrigins, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	hs.Shutdown()
	if httpSrv != nil {
		httpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpSrv.Shutdown(httpCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		cancel()
	}
	gs.GracefulStop()

	if queue != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ProcessTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
	}
	logger.Info("stopped")
}

// startWatcher feeds files appearing under dir through the pipeline.
func startWatcher(ctx context.Context, dir string, debounce time.Duration, qc common.QueueConfig, proc *pipeline.Processor, m *metrics.Metrics, logger *slog.Logger) (*async.Queue, error) {
	ing := ingest.NewIngestor(logger)

	queue := async.NewQueue(func(ctx context.Context, job async.Job) error {
		src, err := ing.IngestPath(job.Path)
		if err != nil {
			return err
		}
		res, err := proc.ProcessFile(ctx, src)
		if err != nil {
			return err
		}
		logger.Info("document processed",
			"path", job.Path,
			"invoice_number", res.Fields.InvoiceNumber,
			"status", res.Status,
			"deduplicated", res.Deduplicated,
		)
		return nil
	}, logger,
		async.WithWorkers(qc.Workers),
		async.WithQueueSize(qc.QueueSize),
		async.WithProcessTimeout(qc.ProcessTimeout),
		async.WithMetrics(m),
	)

	paths, errs, err := ing.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    debounce,
	})
	if err != nil {
		queue.Shutdown(context.Background())
		return nil, err
	}

	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				err := queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()})
				if errors.Is(err, async.ErrQueueClosed) || errors.Is(err, context.Canceled) {
					return
				}
				if err != nil {
					logger.Warn("enqueue failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch error", "error", err)
			}
		}
	}()
	logger.Info("watching for documents", "dir", dir)
	return queue, nil
}
