// Package ocr adapts text recognition engines to plate detections.
//
// Two engines are available: Amazon Rekognition (DetectText) and a local
// Tesseract build through gosseract. Both return every text region they
// see; choosing the plate among them is left to plate.SelectCandidate.
package ocr

import (
	"context"
	"errors"
	"image"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

const (
	EngineRekognition = "rekognition"
	EngineTesseract   = "tesseract"
)

var ErrTesseractUnavailable = errors.New("tesseract support was not compiled in (requires cgo)")

// Recognizer finds text regions in an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error)
}
