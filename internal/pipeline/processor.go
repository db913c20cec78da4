package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
	"github.com/joseph-ayodele/invoice-extract/internal/ingest"
	"github.com/joseph-ayodele/invoice-extract/internal/metrics"
	"github.com/joseph-ayodele/invoice-extract/internal/ocr"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
	"github.com/joseph-ayodele/invoice-extract/internal/schema"
)

// TextSource turns a document file into text.
type TextSource interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// FieldExtractor turns text into an extracted document.
type FieldExtractor interface {
	Extract(text string) extract.ExtractedDocument
}

// Result is the outcome of processing one document.
type Result struct {
	Fields       extract.ExtractedDocument
	Text         string
	Document     *entity.Document // nil when not persisted
	Deduplicated bool
	Status       constants.DocumentStatus
	Source       ocr.ExtractionResult
	Duration     time.Duration
}

// Processor coordinates text extraction, field extraction, schema validation
// and persistence.
type Processor struct {
	text    TextSource
	fields  FieldExtractor
	docs    repository.DocumentRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type ProcessorOption func(*Processor)

func WithMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor wires a Processor. docs may be nil, in which case nothing is stored.
func NewProcessor(text TextSource, fields FieldExtractor, docs repository.DocumentRepository, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{text: text, fields: fields, docs: docs, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile runs the full pipeline for an ingested file. A file whose content
// hash is already stored is returned from the repository without re-extraction.
func (p *Processor) ProcessFile(ctx context.Context, src ingest.Source) (*Result, error) {
	start := time.Now()
	logger := common.RequestLogger(ctx, p.logger)
	if p.docs != nil && src.HashHex != "" {
		doc, err := p.docs.GetByHash(ctx, src.HashHex)
		switch {
		case err == nil:
			logger.Info("pipeline.process.dedup", "path", src.Path, "id", doc.ID)
			p.metrics.DocumentDeduplicated()
			return &Result{
				Fields:       doc.Fields,
				Text:         doc.Text,
				Document:     doc,
				Deduplicated: true,
				Status:       doc.Status,
				Duration:     time.Since(start),
			}, nil
		case !errors.Is(err, common.ErrNotFound):
			p.metrics.Failure("lookup")
			return nil, err
		}
	}

	res, err := p.text.Extract(ctx, src.Path)
	if err != nil {
		logger.Error("pipeline.text.failed", "path", src.Path, "error", err)
		p.metrics.Failure("text")
		return nil, fmt.Errorf("extract text from %s: %w", src.Path, err)
	}
	logger.Debug("pipeline.text.ok",
		"path", src.Path,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
	)

	out, err := p.run(ctx, res.Text, saveMeta{
		hash:   src.HashHex,
		path:   src.Path,
		format: res.SourceType,
		size:   src.SizeBytes,
	}, true)
	if err != nil {
		return nil, err
	}
	out.Source = res
	out.Duration = time.Since(start)
	p.metrics.DocumentProcessed(string(out.Status), out.Duration)
	return out, nil
}

// TextInput is raw document text submitted directly, skipping the text source.
type TextInput struct {
	Text     string
	FileName string
	Persist  bool
}

// ProcessText runs field extraction over already-decoded text.
func (p *Processor) ProcessText(ctx context.Context, in TextInput) (*Result, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, common.NewAppError("EMPTY_TEXT", "document text is empty", common.ErrInvalidInput)
	}
	start := time.Now()
	sum := sha256.Sum256([]byte(in.Text))

	format := constants.MapExtToFormat(constants.NormalizeExt(filepath.Ext(in.FileName)))
	if format == "" {
		format = constants.TEXT
	}
	out, err := p.run(ctx, in.Text, saveMeta{
		hash:   hex.EncodeToString(sum[:]),
		path:   in.FileName,
		format: format,
		size:   int64(len(in.Text)),
	}, in.Persist)
	if err != nil {
		return nil, err
	}
	out.Duration = time.Since(start)
	p.metrics.DocumentProcessed(string(out.Status), out.Duration)
	return out, nil
}

type saveMeta struct {
	hash   string
	path   string
	format string
	size   int64
}

func (p *Processor) run(ctx context.Context, text string, meta saveMeta, persist bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := common.RequestLogger(ctx, p.logger)
	fields := p.fields.Extract(text)

	status := constants.DocumentStatusExtracted
	var validationErr string
	if err := schema.ValidateDocument(fields); err != nil {
		status = constants.DocumentStatusNeedsReview
		validationErr = err.Error()
		logger.Warn("pipeline.schema.invalid", "path", meta.path, "error", err)
	}

	out := &Result{Fields: fields, Text: text, Status: status}
	logger.Info("pipeline.process.ok",
		"path", meta.path,
		"invoice_number", fields.InvoiceNumber,
		"supplier", fields.SupplierName,
		"total", fields.TotalAmount,
		"items", len(fields.Items),
		"status", status,
	)
	if !persist || p.docs == nil {
		return out, nil
	}

	doc, dedup, err := p.docs.Save(ctx, repository.SaveRequest{
		ContentHash:     meta.hash,
		SourcePath:      meta.path,
		SourceFormat:    meta.format,
		FileSize:        meta.size,
		Status:          status,
		ValidationError: validationErr,
		Text:            text,
		Fields:          fields,
	})
	if err != nil {
		logger.Error("pipeline.save.failed", "path", meta.path, "error", err)
		p.metrics.Failure("save")
		return nil, err
	}
	out.Document = doc
	out.Deduplicated = dedup
	if dedup {
		p.metrics.DocumentDeduplicated()
	}
	return out, nil
}
