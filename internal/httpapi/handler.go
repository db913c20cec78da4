package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Handler serves the document upload API.
type Handler struct {
	proc      *pipeline.Processor
	ingestor  *ingest.Ingestor
	docs      repository.DocumentRepository // optional
	db        HealthChecker                 // optional
	maxUpload int64
	logger    *slog.Logger
}

type Config struct {
	Docs           repository.DocumentRepository
	DB             HealthChecker
	MaxUploadBytes int64
}

func NewHandler(proc *pipeline.Processor, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	return &Handler{
		proc:      proc,
		ingestor:  ingest.NewIngestor(logger),
		docs:      cfg.Docs,
		db:        cfg.DB,
		maxUpload: cfg.MaxUploadBytes,
		logger:    logger,
	}
}

// Health reports service status and, when configured, database reachability.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy", "service": "invoice-extract"}
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context(), 2*time.Second); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

type parseTextRequest struct {
	Text     string `json:"text"`
	FileName string `json:"file_name"`
	Persist  bool   `json:"persist"`
}

// Parse accepts a multipart upload in the "file" field, or a JSON body with
// raw text, and responds with the extraction envelope.
func (h *Handler) Parse(c *gin.Context) {
	start := time.Now()
	if strings.HasPrefix(c.ContentType(), "application/json") {
		h.parseText(c, start)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusRequestEntityTooLarge, errors.New("file too large"), "", 0, start)
			return
		}
		h.fail(c, http.StatusBadRequest, errors.New("no file provided"), "", 0, start)
		return
	}
	name := filepath.Base(fh.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		h.fail(c, http.StatusBadRequest, errors.New("no file selected"), "", 0, start)
		return
	}
	if _, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(name))]; !ok {
		h.fail(c, http.StatusBadRequest, errors.New("file type not allowed"), name, fh.Size, start)
		return
	}
	if fh.Size > h.maxUpload {
		h.fail(c, http.StatusRequestEntityTooLarge, errors.New("file too large"), name, fh.Size, start)
		return
	}

	dir, err := os.MkdirTemp("", "invx-upload-*")
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, name, fh.Size, start)
		return
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			h.logger.Warn("failed to remove upload dir", "dir", dir, "error", rmErr)
		}
	}()
	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		h.fail(c, http.StatusInternalServerError, fmt.Errorf("save upload: %w", err), name, fh.Size, start)
		return
	}

	common.RequestLogger(c.Request.Context(), h.logger).Info("processing upload", "file_name", name, "size", fh.Size)
	src, err := h.ingestor.IngestPath(dst)
	if err != nil {
		h.fail(c, statusFor(err), err, name, fh.Size, start)
		return
	}
	res, err := h.proc.ProcessFile(c.Request.Context(), src)
	if err != nil {
		h.fail(c, statusFor(err), err, name, fh.Size, start)
		return
	}
	h.respond(c, res, name, fh.Size, start)
}

func (h *Handler) parseText(c *gin.Context, start time.Time) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	var req parseTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusRequestEntityTooLarge, errors.New("request body too large"), "", 0, start)
			return
		}
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err), "", 0, start)
		return
	}
	name := req.FileName
	if name == "" {
		name = "input.txt"
	}
	size := int64(len(req.Text))
	res, err := h.proc.ProcessText(c.Request.Context(), pipeline.TextInput{
		Text:     req.Text,
		FileName: name,
		Persist:  req.Persist,
	})
	if err != nil {
		h.fail(c, statusFor(err), err, name, size, start)
		return
	}
	h.respond(c, res, name, size, start)
}

// GetDocument returns a stored document by id.
func (h *Handler) GetDocument(c *gin.Context) {
	if h.docs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "document storage is not configured"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	doc, err := h.docs.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) respond(c *gin.Context, res *pipeline.Result, name string, size int64, start time.Time) {
	env, err := pipeline.BuildEnvelope(res, name, size)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, name, size, start)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (h *Handler) fail(c *gin.Context, code int, err error, name string, size int64, start time.Time) {
	logger := common.RequestLogger(c.Request.Context(), h.logger)
	if code >= http.StatusInternalServerError {
		logger.Error("parse failed", "file_name", name, "error", err)
	} else {
		logger.Warn("parse rejected", "file_name", name, "error", err)
	}
	c.JSON(code, pipeline.ErrorEnvelope(err, name, size, time.Since(start)))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
