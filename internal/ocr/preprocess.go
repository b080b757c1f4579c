package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/Douglasgls/zona-verde-api/internal/plate"
)

const DefaultUpscaleFactor = 2

// MaxPreprocessPixels bounds the upscaled image; the factor is lowered
// until the output fits.
const MaxPreprocessPixels = 16_000_000

// Preprocess prepares a photo for text recognition: grayscale, a cubic
// upscale by factor and a small median filter that removes sensor noise
// while keeping character edges sharp. A factor below 1 keeps the size.
func Preprocess(img image.Image, factor int) image.Image {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	if f := upscaleFactor(b.Size(), factor); f > 1 {
		gray = imaging.Resize(gray, b.Dx()*f, b.Dy()*f, imaging.CatmullRom)
	}
	return toGray(effect.Median(gray, 1))
}

func upscaleFactor(size image.Point, factor int) int {
	pixels := size.X * size.Y
	for factor > 1 && pixels*factor*factor > MaxPreprocessPixels {
		factor--
	}
	return factor
}

// normalizeRect converts a pixel rectangle to fractions of size.
func normalizeRect(r image.Rectangle, size image.Point) plate.BoundingBox {
	if size.X == 0 || size.Y == 0 {
		return plate.BoundingBox{}
	}
	w, h := float64(size.X), float64(size.Y)
	return plate.BoundingBox{
		Left:   float64(r.Min.X) / w,
		Top:    float64(r.Min.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}
