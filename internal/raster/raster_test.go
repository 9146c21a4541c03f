package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetSettings(t *testing.T) {
	tests := []struct {
		preset  Preset
		scale   float64
		format  Format
		quality float64
	}{
		{PresetLow, 0.9, Lossy, 0.8},
		{PresetRecommended, 0.75, Lossy, 0.6},
		{PresetExtreme, 0.5, Lossy, 0.3},
		{PresetOCR, 2.0, Lossless, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			s, err := tt.preset.Settings()
			require.NoError(t, err)
			assert.Equal(t, tt.scale, s.Scale)
			assert.Equal(t, tt.format, s.Format)
			assert.Equal(t, tt.quality, s.Quality)
			assert.NoError(t, s.Validate())
		})
	}

	_, err := Preset("ultra").Settings()
	assert.Error(t, err)
}

func TestParseCompressionPreset(t *testing.T) {
	p, err := ParseCompressionPreset("")
	require.NoError(t, err)
	assert.Equal(t, PresetRecommended, p)

	p, err = ParseCompressionPreset(" LOW ")
	require.NoError(t, err)
	assert.Equal(t, PresetLow, p)

	p, err = ParseCompressionPreset("high")
	require.NoError(t, err)
	assert.Equal(t, PresetExtreme, p)

	_, err = ParseCompressionPreset("word")
	assert.Error(t, err, "conversion presets are not compression levels")
}

func TestSettingsValidate(t *testing.T) {
	assert.Error(t, Settings{Scale: 0, Format: Lossy, Quality: 0.5}.Validate())
	assert.Error(t, Settings{Scale: 1, Format: Lossy, Quality: 1.5}.Validate())
	assert.Error(t, Settings{Scale: 1, Format: Format(9)}.Validate())
	assert.NoError(t, Settings{Scale: 1, Format: Lossless, Quality: 7}.Validate(), "quality is ignored for lossless")
}

func TestNormaliseRotation(t *testing.T) {
	for in, want := range map[int]int{0: 0, 90: 90, 360: 0, 450: 90, -90: 270, -180: 180} {
		got, err := NormaliseRotation(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "rotation %d", in)
	}

	_, err := NormaliseRotation(45)
	assert.Error(t, err)
}

func TestJPEGQualityClamp(t *testing.T) {
	assert.Equal(t, 1, JPEGQuality(0))
	assert.Equal(t, 60, JPEGQuality(0.6))
	assert.Equal(t, 100, JPEGQuality(1))
	assert.Equal(t, 100, JPEGQuality(3))
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))

	data, err := Encode(img, Lossy, 0.5)
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(data))
	assert.NoError(t, err)

	data, err = Encode(img, Lossless, 0)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	page, err := EncodePage(3, img, Settings{Scale: 1, Format: Lossless})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 8, page.Width)
	assert.Equal(t, 4, page.Height)
	assert.Equal(t, "image/png", page.Format.MIMEType())
}

func TestRotateDimensionsAndPixels(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, red)
	img.Set(1, 0, blue)

	r90 := Rotate(img, 90)
	assert.Equal(t, 1, r90.Bounds().Dx())
	assert.Equal(t, 2, r90.Bounds().Dy())
	assert.Equal(t, red, r90.RGBAAt(0, 0))
	assert.Equal(t, blue, r90.RGBAAt(0, 1))

	r180 := Rotate(img, 180)
	assert.Equal(t, blue, r180.RGBAAt(0, 0))
	assert.Equal(t, red, r180.RGBAAt(1, 0))

	r270 := Rotate(img, 270)
	assert.Equal(t, blue, r270.RGBAAt(0, 0))
	assert.Equal(t, red, r270.RGBAAt(0, 1))

	assert.Same(t, img, Rotate(img, 0))
}

type testPage struct {
	w, h float64
}

func (p testPage) Number() int { return 1 }

func (p testPage) Size() (float64, float64) { return p.w, p.h }

func (p testPage) Render(dpi float64) (image.Image, error) {
	// Off by one pixel to force the resample path
	w := int(p.w*dpi/72) + 1
	h := int(p.h*dpi/72) + 1
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func TestRendererTargetSize(t *testing.T) {
	r := NewRasterizer()
	page := testPage{w: 200, h: 100}

	img, err := r.Render(context.Background(), page, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	img, err = r.Render(context.Background(), page, 0.5, 90)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	_, err = r.Render(context.Background(), page, 0, 0)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, page, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
