package ocr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// preprocessImage writes a cleaned-up copy of the image at path for tesseract:
// bounded to maxSide, grayscale, with a contrast lift and light sharpening.
// The returned cleanup removes the copy.
func preprocessImage(path string, maxSide int) (string, func(), error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}

	b := src.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		src = imaging.Fit(src, maxSide, maxSide, imaging.Lanczos)
	}
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 1.0)

	dir, err := os.MkdirTemp("", "invx-img-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	out := filepath.Join(dir, "page.png")
	if err := imaging.Save(img, out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save image: %w", err)
	}
	return out, cleanup, nil
}
