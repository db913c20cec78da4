package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extract/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	var warn []string
	if e.cfg.Preprocess {
		if p, cleanup, err := preprocessImage(path, e.cfg.MaxImageSide); err != nil {
			e.logger.Warn("image preprocessing failed, using original", "path", path, "error", err)
			warn = append(warn, err.Error())
		} else {
			defer cleanup()
			path = p
		}
	}

	txt, w, err := e.tesseractOCR(ctx, path)
	warn = append(warn, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, err
	}
	txt = Normalize(txt)

	heur := HeuristicConfidence(txt)
	conf := heur
	if ocrConf, err := e.tesseractTSVConfidence(ctx, path); err != nil {
		warn = append(warn, err.Error())
	} else if ocrConf > 0 {
		// weight the engine's own word confidence higher
		conf = 0.7*ocrConf + 0.3*heur
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column, skipping the header and
// non-word rows (conf -1).
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
