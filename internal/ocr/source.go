package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// ScanFallback rasterizes a PDF and runs tesseract when pdftotext yields
	// no text.
	ScanFallback bool

	// Preprocess grayscales, sharpens and bounds images before tesseract.
	Preprocess   bool
	MaxImageSide int // longest side in pixels after preprocessing, 0 = keep size
}

// ConfigFromCommon maps environment configuration onto a text source Config.
func ConfigFromCommon(c common.OCRConfig) Config {
	return Config{
		TesseractLang: c.Lang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		ScanFallback:  c.ScanFallback,
		Preprocess:    c.Preprocess,
		MaxImageSide:  c.MaxImageSide,
	}
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.TEXT | constants.PDF | constants.IMAGE
	Method     string // "text" | "pdf-text" | "pdf-native" | "pdf-ocr" | "image-ocr"
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor turns a document file into normalized text.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner, used to stub pdftotext and tesseract.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text extraction", "path", path, "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.TEXT:
		res, err = e.extractText(path)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("unsupported extension", "path", path, "extension", ext)
		return ExtractionResult{}, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("extension %q", ext), common.ErrUnsupported)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	if res.Confidence == 0 {
		res.Confidence = HeuristicConfidence(res.Text)
	}
	e.logger.Debug("text extraction ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// extractText reads OCR markdown or plain text that was produced upstream.
func (e *Extractor) extractText(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{SourceType: constants.TEXT}, fmt.Errorf("read %s: %w", path, err)
	}
	return ExtractionResult{
		Text:       Normalize(string(b)),
		Pages:      1,
		SourceType: constants.TEXT,
		Method:     "text",
	}, nil
}
