package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	htmltemplate "html/template"
	"strings"

	"github.com/sammcj/pdf-toolbox/internal/raster"
)

type htmlPage struct {
	Number int
	Width  int
	Height int
	Src    htmltemplate.URL
}

// HTMLWriter embeds each page image as a data URI in a single HTML file
type HTMLWriter struct {
	title string
	pages []htmlPage
}

// NewHTMLWriter creates a writer for a document with the given title
func NewHTMLWriter(title string) *HTMLWriter {
	return &HTMLWriter{title: title}
}

// AddPage encodes the page image into the document
func (w *HTMLWriter) AddPage(_ context.Context, page raster.RenderedPage) error {
	if len(page.Data) == 0 {
		return fmt.Errorf("page %d has no image data", page.Number)
	}

	src := "data:" + page.Format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(page.Data)
	w.pages = append(w.pages, htmlPage{
		Number: page.Number,
		Width:  page.Width,
		Height: page.Height,
		Src:    htmltemplate.URL(src), // #nosec G203 -- generated data URI
	})
	return nil
}

// Finish renders the HTML document
func (w *HTMLWriter) Finish() ([]byte, error) {
	if len(w.pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, map[string]any{"Title": w.title, "Pages": w.pages}); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="pdf-toolbox">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #525659; }
.page { display: block; margin: 16px auto; max-width: 100%; height: auto; box-shadow: 0 2px 8px rgba(0,0,0,.4); background: #fff; }
</style>
</head>
<body>
{{- range .Pages}}
<img class="page" id="page-{{.Number}}" src="{{.Src}}" width="{{.Width}}" height="{{.Height}}" alt="Page {{.Number}}">
{{- end}}
</body>
</html>
`))
