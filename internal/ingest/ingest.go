package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

// Source is one discovered document file.
type Source struct {
	Path         string
	Ext          string
	Format       string // constants.TEXT | constants.PDF | constants.IMAGE
	SizeBytes    int64
	MIME         string // sniffed content type
	HashHex      string // sha256 of content
	Deduplicated bool   // same content already seen earlier in this walk
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor discovers document files on the local filesystem.
type Ingestor struct {
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	logger      *slog.Logger
}

func NewIngestor(logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{logger: logger}
}

func (i *Ingestor) allowed(ext string) bool {
	exts := i.AllowedExts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

// IngestPath hashes a single file.
func (i *Ingestor) IngestPath(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{Path: path}, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowed(ext) {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return Source{Path: abs, Ext: ext}, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("extension %q", ext), common.ErrUnsupported)
	}

	f, err := os.Open(abs)
	if err != nil {
		return Source{Path: abs, Ext: ext}, fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("close file error", "path", abs, "error", cerr)
		}
	}()

	head := make([]byte, sniffLen)
	hn, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Source{Path: abs, Ext: ext}, fmt.Errorf("read: %w", err)
	}
	head = head[:hn]

	h := sha256.New()
	n, err := io.Copy(h, io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		return Source{Path: abs, Ext: ext}, fmt.Errorf("hash: %w", err)
	}

	format := constants.MapExtToFormat(ext)
	mime := mimetype.Detect(head)
	if n > 0 && !contentMatches(format, mime) {
		i.logger.Warn("content does not match extension", "path", abs, "ext", ext, "mime", mime.String())
		return Source{Path: abs, Ext: ext, MIME: mime.String()},
			common.NewAppError("CONTENT_MISMATCH", fmt.Sprintf("%s content in .%s file", mime.String(), ext), common.ErrUnsupported)
	}

	return Source{
		Path:      abs,
		Ext:       ext,
		Format:    format,
		MIME:      mime.String(),
		SizeBytes: n,
		HashHex:   hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// sniffLen is how much of a file is read for content detection.
const sniffLen = 3072

// contentMatches reports whether sniffed content agrees with the format chosen
// from the extension. Text formats only reject content that is clearly a PDF
// or an image.
func contentMatches(format string, mime *mimetype.MIME) bool {
	isPDF := mime.Is("application/pdf")
	isImage := strings.HasPrefix(mime.String(), "image/")
	switch format {
	case constants.PDF:
		return isPDF
	case constants.IMAGE:
		return isImage
	default:
		return !isPDF && !isImage
	}
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *Ingestor) IngestDirectory(root string, skipHidden bool) ([]Source, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Source
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Source{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !i.allowed(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		src, err := i.IngestPath(path)
		if err != nil {
			src.Err = err.Error()
			results = append(results, src)
			stats.Failed++
			return nil
		}
		if _, dup := seen[src.HashHex]; dup {
			src.Deduplicated = true
			stats.Deduplicated++
		}
		seen[src.HashHex] = struct{}{}

		results = append(results, src)
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
