//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

// TesseractRecognizer runs a local Tesseract engine. A gosseract client is
// not safe for concurrent use, so calls are serialized.
type TesseractRecognizer struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
	logger   *zap.Logger
}

func NewTesseractRecognizer(language string, logger *zap.Logger) (*TesseractRecognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return &TesseractRecognizer{client: client, language: language, logger: logger.Named("tesseract")}, nil
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image for tesseract: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	t.logger.Debug("text detected", zap.Int("lines", len(boxes)), zap.String("language", t.language))

	size := img.Bounds().Size()
	detections := make([]plate.Detection, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		detections = append(detections, plate.Detection{
			Box:        normalizeRect(box.Box, size),
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
		})
	}
	return detections, nil
}

func (t *TesseractRecognizer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
