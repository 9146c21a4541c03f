package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(n int, format raster.Format) raster.RenderedPage {
	return raster.RenderedPage{Number: n, Width: 100, Height: 200, Format: format, Data: []byte{0xff, 0xd8, byte(n)}}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = string(body)
	}
	return files
}

func TestDocxPackage(t *testing.T) {
	w := NewDocxWriter("Q3 <report> & notes")
	ctx := context.Background()
	require.NoError(t, w.AddPage(ctx, page(1, raster.Lossy)))
	require.NoError(t, w.AddPage(ctx, page(3, raster.Lossless)))

	data, err := w.Finish()
	require.NoError(t, err)

	files := readZip(t, data)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"word/_rels/document.xml.rels",
		"word/document.xml",
		"word/media/image1.jpg",
		"word/media/image2.png",
	} {
		assert.Contains(t, files, name)
	}

	assert.Equal(t, string([]byte{0xff, 0xd8, 1}), files["word/media/image1.jpg"])
	assert.Contains(t, files["[Content_Types].xml"], "image/jpeg")
	assert.Contains(t, files["[Content_Types].xml"], "image/png")
	assert.Contains(t, files["docProps/core.xml"], "Q3 &lt;report&gt; &amp; notes")

	doc := files["word/document.xml"]
	assert.Equal(t, 2, strings.Count(doc, "<wp:inline"))
	assert.Contains(t, doc, `name="Page 3"`)
	assert.Equal(t, 1, strings.Count(doc, `w:type="page"`), "page breaks only between pictures")
	assert.Contains(t, files["word/_rels/document.xml.rels"], "media/image2.png")
}

func TestDocxRequiresPages(t *testing.T) {
	_, err := NewDocxWriter("empty").Finish()
	assert.Error(t, err)

	err = NewDocxWriter("x").AddPage(context.Background(), raster.RenderedPage{Number: 1})
	assert.Error(t, err)
}

func TestFitEMU(t *testing.T) {
	maxW := int64(float64(pageWidthTwips-2*marginTwips) / twipsPerInch * emuPerInch)
	maxH := int64(float64(pageHeightTwips-2*marginTwips) / twipsPerInch * emuPerInch)

	cx, cy := FitEMU(1000, 100)
	assert.InDelta(t, maxW, cx, 1, "wide images fill the width")
	assert.InDelta(t, float64(cx)/10, float64(cy), 1)

	cx, cy = FitEMU(100, 1000)
	assert.InDelta(t, maxH, cy, 1, "tall images fill the height")
	assert.LessOrEqual(t, cx, maxW)
}

func TestHTMLDocument(t *testing.T) {
	w := NewHTMLWriter("Scan <1>")
	ctx := context.Background()
	require.NoError(t, w.AddPage(ctx, page(1, raster.Lossy)))
	require.NoError(t, w.AddPage(ctx, page(2, raster.Lossless)))

	data, err := w.Finish()
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "<title>Scan &lt;1&gt;</title>")
	assert.Equal(t, 2, strings.Count(html, "<img "))
	assert.Contains(t, html, `src="data:image/jpeg;base64,`)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, `id="page-2"`)
	assert.Less(t, strings.Index(html, `id="page-1"`), strings.Index(html, `id="page-2"`))

	_, err = NewHTMLWriter("empty").Finish()
	assert.Error(t, err)
}
