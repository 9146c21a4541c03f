// Package raster turns document pages into encoded images: rasterise at a
// scale, optionally rotate, and compress to JPEG or PNG.
package raster

import (
	"fmt"
	"strings"
)

// Format selects the image codec used for rendered pages
type Format int

const (
	// Lossy encodes pages as JPEG and honours Settings.Quality
	Lossy Format = iota
	// Lossless encodes pages as PNG and ignores Settings.Quality
	Lossless
)

// String returns the short codec name
func (f Format) String() string {
	switch f {
	case Lossy:
		return "jpeg"
	case Lossless:
		return "png"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// MIMEType returns the content type of images produced in this format
func (f Format) MIMEType() string {
	if f == Lossless {
		return "image/png"
	}
	return "image/jpeg"
}

// Extension returns the file extension (with dot) for this format
func (f Format) Extension() string {
	if f == Lossless {
		return ".png"
	}
	return ".jpg"
}

// Settings fixes how one conversion call rasterises and encodes pages
type Settings struct {
	// Scale is the fraction of the original page size, must be positive
	Scale float64 `json:"scale"`

	// Format is the image codec for rendered pages
	Format Format `json:"-"`

	// Quality in [0,1], meaningful only for Lossy
	Quality float64 `json:"quality"`
}

// Validate checks the settings are usable
func (s Settings) Validate() error {
	if s.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", s.Scale)
	}
	if s.Format != Lossy && s.Format != Lossless {
		return fmt.Errorf("unknown image format: %v", s.Format)
	}
	if s.Format == Lossy && (s.Quality < 0 || s.Quality > 1) {
		return fmt.Errorf("quality must be within [0,1], got %g", s.Quality)
	}
	return nil
}

// String renders the settings for logs
func (s Settings) String() string {
	if s.Format == Lossless {
		return fmt.Sprintf("scale=%g format=%s", s.Scale, s.Format)
	}
	return fmt.Sprintf("scale=%g format=%s quality=%g", s.Scale, s.Format, s.Quality)
}

// NormaliseRotation folds a rotation in degrees into 0, 90, 180 or 270.
// Anything that is not a multiple of 90 is rejected.
func NormaliseRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("rotation must be a multiple of 90 degrees, got %d", degrees)
	}
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	return r, nil
}

// ParseFormat maps a user supplied codec name onto a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg", "lossy":
		return Lossy, nil
	case "png", "lossless":
		return Lossless, nil
	default:
		return 0, fmt.Errorf("unknown image format: %s", s)
	}
}
