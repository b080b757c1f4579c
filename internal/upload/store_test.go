package upload

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 100, B: 50, A: 255})
		}
	}
	return img
}

func fixedStore(t *testing.T) *Store {
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	s.suffix = func() string { return "0a1b2c3d" }
	return s
}

func TestSavePNG_WritesPathLayout(t *testing.T) {
	s := fixedStore(t)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))

	path, img, err := s.SavePNG(&buf, "A-07")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.root, "vaga-A-07", "A-07-20250314092653-0a1b2c3d.png"), path)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestSavePNG_AcceptsBMP(t *testing.T) {
	s := fixedStore(t)
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))

	_, _, err := s.SavePNG(&buf, "B1")

	assert.NoError(t, err)
}

func TestSavePNG_RejectsGarbage(t *testing.T) {
	s := fixedStore(t)

	_, _, err := s.SavePNG(strings.NewReader("definitely not an image"), "A1")

	assert.ErrorIs(t, err, ErrInvalidImage)
	entries, _ := os.ReadDir(s.root)
	assert.Empty(t, entries)
}

func TestSanitizeSpotCode(t *testing.T) {
	tests := map[string]string{
		"A-07":      "A-07",
		"../../etc": "_etc",
		"vaga 3":    "vaga_3",
		"":          "unknown",
		"///":       "unknown",
		"spot_12-b": "spot_12-b",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeSpotCode(in), in)
	}
}

func TestDecodeImage_FlattensTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeImage(&buf)

	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func solidPNG(t *testing.T, gray uint8) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = gray, gray, gray, 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func readPixel(t *testing.T, path string) uint8 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	r, _, _, _ := img.At(0, 0).RGBA()
	return uint8(r >> 8)
}

func TestSavePNG_SameSecondKeepsBothUploads(t *testing.T) {
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	first, _, err := s.SavePNG(solidPNG(t, 10), "A-07")
	require.NoError(t, err)
	second, _, err := s.SavePNG(solidPNG(t, 200), "A-07")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, uint8(10), readPixel(t, first))
	assert.Equal(t, uint8(200), readPixel(t, second))
}

func TestSavePNG_RetriesOnNameCollision(t *testing.T) {
	s := fixedStore(t)
	suffixes := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	s.suffix = func() string {
		next := suffixes[0]
		suffixes = suffixes[1:]
		return next
	}

	first, _, err := s.SavePNG(solidPNG(t, 10), "B1")
	require.NoError(t, err)
	second, _, err := s.SavePNG(solidPNG(t, 200), "B1")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(second, "-bbbbbbbb.png"), second)
	assert.Equal(t, uint8(10), readPixel(t, first))
}

func TestSavePNG_FailsWhenEveryNameIsTaken(t *testing.T) {
	s := fixedStore(t)

	first, _, err := s.SavePNG(solidPNG(t, 10), "B1")
	require.NoError(t, err)
	_, _, err = s.SavePNG(solidPNG(t, 200), "B1")

	require.Error(t, err)
	assert.Equal(t, uint8(10), readPixel(t, first))
}

// pngWithDimensions returns a tiny valid PNG whose header claims w x h.
func pngWithDimensions(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := solidPNG(t, 0).Bytes()
	// 8-byte signature, 4-byte length, "IHDR", then width and height.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeImage_RejectsHugeDimensions(t *testing.T) {
	data := pngWithDimensions(t, 100_000, 100_000)

	_, err := DecodeImage(bytes.NewReader(data))

	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDecodeImage_RejectsOversizedUpload(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader(make([]byte, MaxUploadBytes+1)))

	assert.ErrorIs(t, err, ErrInvalidImage)
}
