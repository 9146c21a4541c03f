package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
)

// RenderedPage is one rasterised and encoded page. It is handed straight to a
// page sink and not kept afterwards.
type RenderedPage struct {
	// Number is the 1-based page number in the source document
	Number int
	Width  int
	Height int
	Format Format
	Data   []byte
}

// JPEGQuality maps a quality in [0,1] onto the JPEG encoder's 1..100 scale
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	return min(max(v, 1), 100)
}

// Encode compresses img in the given format. Quality is ignored for Lossless.
func Encode(img image.Image, format Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case Lossy:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(quality)}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case Lossless:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown image format: %v", format)
	}

	return buf.Bytes(), nil
}

// EncodePage encodes img per settings and wraps it as a RenderedPage
func EncodePage(number int, img image.Image, s Settings) (RenderedPage, error) {
	data, err := Encode(img, s.Format, s.Quality)
	if err != nil {
		return RenderedPage{}, err
	}
	b := img.Bounds()
	return RenderedPage{
		Number: number,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: s.Format,
		Data:   data,
	}, nil
}
