// Package upload persists spot camera images on local disk.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("invalid or unsupported image")

const (
	// MaxImagePixels rejects uploads whose header declares more pixels,
	// before any pixel buffer is allocated.
	MaxImagePixels = 40_000_000
	MaxUploadBytes = 25 << 20
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Store writes images under <root>/vaga-<spot>/<spot>-<YYYYMMDDHHMMSS>-<suffix>.png.
// The random suffix keeps every upload in its own file.
type Store struct {
	root   string
	now    func() time.Time
	suffix func() string
}

func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now, suffix: randomSuffix}
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// SavePNG decodes r, converts it to RGB and stores it as PNG. It returns
// the written path and the decoded image.
func (s *Store) SavePNG(r io.Reader, spotCode string) (string, image.Image, error) {
	rgb, err := DecodeImage(r)
	if err != nil {
		return "", nil, err
	}

	spot := SanitizeSpotCode(spotCode)
	dir := filepath.Join(s.root, "vaga-"+spot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating upload dir: %w", err)
	}

	f, path, err := s.createUnique(dir, spot)
	if err != nil {
		return "", nil, err
	}
	if err := png.Encode(f, rgb); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", nil, fmt.Errorf("closing %s: %w", path, err)
	}
	return path, rgb, nil
}

const maxCreateAttempts = 5

// createUnique opens a new file with O_EXCL so an existing upload is never
// overwritten.
func (s *Store) createUnique(dir, spot string) (*os.File, string, error) {
	stamp := s.now().Format("20060102150405")
	var lastErr error
	for i := 0; i < maxCreateAttempts; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.png", spot, stamp, s.suffix()))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", path, err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("no free upload name in %s: %w", dir, lastErr)
}

// DecodeImage decodes any registered format and flattens it onto a white
// background. Undecodable, oversized or too-many-pixel input yields
// ErrInvalidImage.
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxUploadBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxImagePixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	rgb := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(rgb, rgb.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), src, src.Bounds().Min, draw.Over)
	return rgb, nil
}

// SanitizeSpotCode keeps letters, digits, '_' and '-'. Anything else
// collapses to '_'; an empty result becomes "unknown".
func SanitizeSpotCode(code string) string {
	clean := unsafePathChars.ReplaceAllString(code, "_")
	if clean == "" || clean == "_" {
		return "unknown"
	}
	return clean
}
