package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

// MaxRekognitionImageBytes is the DetectText limit for inline image bytes.
const MaxRekognitionImageBytes = 5 * 1024 * 1024

const (
	rekognitionJPEGQuality = 90
	minRekognitionSide     = 64
)

// TextDetector is the part of the Rekognition client used here.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type RekognitionRecognizer struct {
	client TextDetector
	logger *zap.Logger
}

func NewRekognitionRecognizer(client TextDetector, logger *zap.Logger) *RekognitionRecognizer {
	return &RekognitionRecognizer{client: client, logger: logger.Named("rekognition")}
}

func (r *RekognitionRecognizer) Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error) {
	if r.client == nil {
		return nil, errors.New("rekognition client not initialized")
	}

	payload, err := encodeForRekognition(img)
	if err != nil {
		return nil, err
	}

	result, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: payload},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition DetectText: %w", err)
	}
	r.logger.Debug("text detected", zap.Int("blocks", len(result.TextDetections)))

	detections := make([]plate.Detection, 0, len(result.TextDetections))
	for _, td := range result.TextDetections {
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		if td.DetectedText == nil {
			continue
		}
		detections = append(detections, plate.Detection{
			Box:        boxFromGeometry(td.Geometry),
			Text:       aws.ToString(td.DetectedText),
			Confidence: float64(aws.ToFloat32(td.Confidence)) / 100,
		})
	}
	return detections, nil
}

// encodeForRekognition encodes img as grayscale JPEG, shrinking it by a
// quarter per round until it fits MaxRekognitionImageBytes. Bounding boxes
// come back as fractions, so the scale change does not affect them.
func encodeForRekognition(img image.Image) ([]byte, error) {
	gray := toGray(img)
	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: rekognitionJPEGQuality}); err != nil {
			return nil, fmt.Errorf("encoding image for rekognition: %w", err)
		}
		if buf.Len() <= MaxRekognitionImageBytes {
			return buf.Bytes(), nil
		}

		b := gray.Bounds()
		w, h := b.Dx()*3/4, b.Dy()*3/4
		if w < minRekognitionSide || h < minRekognitionSide {
			return nil, fmt.Errorf("image does not fit the %d byte rekognition limit", MaxRekognitionImageBytes)
		}
		gray = toGray(imaging.Resize(gray, w, h, imaging.Linear))
	}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func boxFromGeometry(g *types.Geometry) plate.BoundingBox {
	if g == nil || g.BoundingBox == nil {
		return plate.BoundingBox{}
	}
	b := g.BoundingBox
	return plate.BoundingBox{
		Left:   float64(aws.ToFloat32(b.Left)),
		Top:    float64(aws.ToFloat32(b.Top)),
		Width:  float64(aws.ToFloat32(b.Width)),
		Height: float64(aws.ToFloat32(b.Height)),
	}
}
