package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extract/constants"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	method := "pdf-text"
	txt, pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		// poppler missing or choking on the file; try the pure Go reader
		e.logger.Warn("pdftotext failed, falling back to native reader", "path", path, "error", err)
		ntxt, npages, nerr := readPDFNative(path)
		if nerr != nil {
			warns = append(warns, nerr.Error())
			return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, fmt.Errorf("pdftotext: %w", err)
		}
		txt, pages, method = ntxt, npages, "pdf-native"
	}
	txt = Normalize(txt)
	if txt != "" || !e.cfg.ScanFallback {
		return ExtractionResult{
			Text:       txt,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     method,
			Warnings:   warns,
		}, nil
	}

	e.logger.Info("pdf has no text layer, rasterizing", "path", path, "dpi", e.cfg.DPI)
	txt, pages, w, err := e.pdfToOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	return ExtractionResult{
		Text:       Normalize(txt),
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Warnings:   warns,
	}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// form feed separates pages
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

// readPDFNative pulls the text layer with ledongthuc/pdf, one line per text row.
func readPDFNative(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		if i > 1 {
			b.WriteString("\n\n")
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteString("\n")
		}
	}
	return b.String(), n, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "invx-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	return b.String(), len(matches), warns, nil
}
