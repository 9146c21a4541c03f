// Package convert packages rendered pages as Word (.docx) or HTML documents.
// Each source page becomes one picture; no text or layout is extracted.
package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/sammcj/pdf-toolbox/internal/raster"
)

const (
	emuPerInch = 914400

	// A4 portrait with half-inch margins
	pageWidthTwips  = 11906
	pageHeightTwips = 16838
	marginTwips     = 720
	twipsPerInch    = 1440
)

type docxPicture struct {
	ID     int
	Number int
	RelID  string
	Target string
	CX     int64
	CY     int64
}

// DocxWriter streams page images into a WordprocessingML package. Images are
// written to the archive as they arrive; the document part is written by
// Finish.
type DocxWriter struct {
	buf      bytes.Buffer
	zw       *zip.Writer
	pictures []docxPicture
	hasJPEG  bool
	hasPNG   bool
	title    string
}

// NewDocxWriter creates a writer for a document with the given title
func NewDocxWriter(title string) *DocxWriter {
	w := &DocxWriter{title: title}
	w.zw = zip.NewWriter(&w.buf)
	return w
}

// AddPage stores the page image and lays it out on its own Word page
func (w *DocxWriter) AddPage(_ context.Context, page raster.RenderedPage) error {
	if page.Width <= 0 || page.Height <= 0 || len(page.Data) == 0 {
		return fmt.Errorf("page %d has no image data", page.Number)
	}

	id := len(w.pictures) + 1
	target := fmt.Sprintf("media/image%d%s", id, page.Format.Extension())

	f, err := w.zw.Create("word/" + target)
	if err != nil {
		return fmt.Errorf("failed to add image for page %d: %w", page.Number, err)
	}
	if _, err := f.Write(page.Data); err != nil {
		return fmt.Errorf("failed to write image for page %d: %w", page.Number, err)
	}

	if page.Format == raster.Lossless {
		w.hasPNG = true
	} else {
		w.hasJPEG = true
	}

	cx, cy := FitEMU(page.Width, page.Height)
	w.pictures = append(w.pictures, docxPicture{
		ID:     id,
		Number: page.Number,
		RelID:  fmt.Sprintf("rIdImg%d", id),
		Target: target,
		CX:     cx,
		CY:     cy,
	})
	return nil
}

// FitEMU scales an image of w x h pixels to fit the printable area of an A4
// page, preserving aspect ratio, and returns the extent in EMUs.
func FitEMU(w, h int) (int64, int64) {
	maxW := float64(pageWidthTwips-2*marginTwips) / twipsPerInch * emuPerInch
	maxH := float64(pageHeightTwips-2*marginTwips) / twipsPerInch * emuPerInch

	scale := min(maxW/float64(w), maxH/float64(h))
	return int64(float64(w) * scale), int64(float64(h) * scale)
}

// Finish writes the remaining package parts and returns the .docx bytes
func (w *DocxWriter) Finish() ([]byte, error) {
	if len(w.pictures) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	parts := []struct {
		name string
		tmpl *template.Template
	}{
		{"[Content_Types].xml", contentTypesTmpl},
		{"_rels/.rels", rootRelsTmpl},
		{"docProps/core.xml", corePropsTmpl},
		{"word/_rels/document.xml.rels", documentRelsTmpl},
		{"word/document.xml", documentTmpl},
	}

	data := map[string]any{
		"Pictures": w.pictures,
		"HasJPEG":  w.hasJPEG,
		"HasPNG":   w.hasPNG,
		"Title":    w.title,
		"PageW":    pageWidthTwips,
		"PageH":    pageHeightTwips,
		"Margin":   marginTwips,
	}

	for _, p := range parts {
		f, err := w.zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", p.name, err)
		}
		if err := p.tmpl.Execute(f, data); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", p.name, err)
		}
	}

	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalise docx: %w", err)
	}
	return w.buf.Bytes(), nil
}

var funcs = template.FuncMap{
	"xml": xmlEscape,
}

var contentTypesTmpl = template.Must(template.New("ct").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
{{- if .HasJPEG}}
<Default Extension="jpg" ContentType="image/jpeg"/>
{{- end}}
{{- if .HasPNG}}
<Default Extension="png" ContentType="image/png"/>
{{- end}}
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`))

var rootRelsTmpl = template.Must(template.New("rels").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`))

var corePropsTmpl = template.Must(template.New("core").Funcs(funcs).Parse(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>{{xml .Title}}</dc:title>
<dc:creator>pdf-toolbox</dc:creator>
</cp:coreProperties>`))

var documentRelsTmpl = template.Must(template.New("docrels").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
{{- range .Pictures}}
<Relationship Id="{{.RelID}}" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="{{.Target}}"/>
{{- end}}
</Relationships>`))

var documentTmpl = template.Must(template.New("document").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">
<w:body>
{{- range $i, $p := .Pictures}}
{{- if $i}}
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
{{- end}}
<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0"><wp:extent cx="{{$p.CX}}" cy="{{$p.CY}}"/><wp:docPr id="{{$p.ID}}" name="Page {{$p.Number}}"/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic><pic:nvPicPr><pic:cNvPr id="{{$p.ID}}" name="Page {{$p.Number}}"/><pic:cNvPicPr/></pic:nvPicPr><pic:blipFill><a:blip r:embed="{{$p.RelID}}"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill><pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="{{$p.CX}}" cy="{{$p.CY}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>
{{- end}}
<w:sectPr><w:pgSz w:w="{{.PageW}}" w:h="{{.PageH}}"/><w:pgMar w:top="{{.Margin}}" w:right="{{.Margin}}" w:bottom="{{.Margin}}" w:left="{{.Margin}}" w:header="0" w:footer="0" w:gutter="0"/></w:sectPr>
</w:body>
</w:document>`))
