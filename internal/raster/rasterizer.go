package raster

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/sammcj/pdf-toolbox/internal/document"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// pointsPerInch is the PDF user space unit density
const pointsPerInch = 72.0

// Rasterizer renders pages to bitmaps of a predictable size
type Rasterizer struct {
	// Scaler resamples renders whose size is off by rounding. Defaults to
	// draw.ApproxBiLinear.
	Scaler draw.Scaler
}

// NewRasterizer returns a rasterizer with the default resampler
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Scaler: draw.ApproxBiLinear}
}

// TargetSize returns the pixel dimensions a page renders to at scale before
// rotation is applied.
func TargetSize(width, height, scale float64) (int, int) {
	return int(math.Round(width * scale)), int(math.Round(height * scale))
}

// Render rasterises page at scale and applies a quarter-turn rotation. The
// result is round(size*scale) pixels, with width and height swapped for 90
// and 270 degrees.
func (r *Rasterizer) Render(ctx context.Context, page document.Page, scale float64, rotation int) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %g", scale)
	}
	rotation, err := NormaliseRotation(rotation)
	if err != nil {
		return nil, err
	}

	w, h := page.Size()
	tw, th := TargetSize(w, h, scale)
	if tw < 1 || th < 1 {
		return nil, fmt.Errorf("page %d renders to an empty surface (%dx%d)", page.Number(), tw, th)
	}

	src, err := page.Render(pointsPerInch * scale)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page.Number(), err)
	}

	surface := r.fit(src, tw, th)
	return Rotate(surface, rotation), nil
}

// fit copies src onto a fresh RGBA surface of exactly w x h pixels
func (r *Rasterizer) fit(src image.Image, w, h int) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && b.Dx() == w && b.Dy() == h {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	scaler := r.Scaler
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Rotate turns img clockwise by 0, 90, 180 or 270 degrees. Other values
// return img unchanged.
func Rotate(img *image.RGBA, degrees int) *image.RGBA {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var (
		dst *image.RGBA
		m   f64.Aff3
	)
	switch degrees {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		m = f64.Aff3{0, -1, h, 1, 0, 0}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		m = f64.Aff3{-1, 0, w, 0, -1, h}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		m = f64.Aff3{0, 1, 0, -1, 0, w}
	default:
		return img
	}

	// Translate so the source origin sits at 0,0
	if b.Min != (image.Point{}) {
		m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
		m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)
	}

	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}
