//go:build !cgo

package ocr

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

type TesseractRecognizer struct{}

func NewTesseractRecognizer(language string, logger *zap.Logger) (*TesseractRecognizer, error) {
	return nil, ErrTesseractUnavailable
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error) {
	return nil, ErrTesseractUnavailable
}

func (t *TesseractRecognizer) Close() error { return nil }
