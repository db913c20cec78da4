package constants

import "strings"

// Source formats recorded on stored documents.
const (
	TEXT  = "TEXT"
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the allowed values for a document's source format.
var FileTypes = []string{TEXT, PDF, IMAGE}

// AllowedExtensions holds the default allowed file extensions for ingestion.
var AllowedExtensions = map[string]struct{}{
	"md":       {},
	"markdown": {},
	"txt":      {},
	"pdf":      {},
	"png":      {},
	"jpg":      {},
	"jpeg":     {},
	"tif":      {},
	"tiff":     {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to its source format, or "" when
// the extension is not supported.
func MapExtToFormat(ext string) string {
	switch ext {
	case "md", "markdown", "txt":
		return TEXT
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg", "tif", "tiff":
		return IMAGE
	default:
		return ""
	}
}
