// Package mupdf implements document.Loader on top of MuPDF via go-fitz.
package mupdf

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sammcj/pdf-toolbox/internal/document"
	"github.com/sirupsen/logrus"
)

// Loader opens PDFs held in memory with MuPDF
type Loader struct {
	logger *logrus.Logger

	// Validate runs pdfcpu's structural validation before MuPDF sees the bytes
	Validate bool
}

// NewLoader creates a MuPDF backed loader
func NewLoader(logger *logrus.Logger, validate bool) *Loader {
	return &Loader{logger: logger, Validate: validate}
}

// Open parses data and returns a page addressable source
func (l *Loader) Open(ctx context.Context, data []byte) (document.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	if l.Validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	count := doc.NumPage()
	if count <= 0 {
		_ = doc.Close()
		return nil, document.ErrNoPages
	}

	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"bytes": len(data),
			"pages": count,
		}).Debug("Opened document")
	}

	return &source{doc: doc, pages: count}, nil
}

type source struct {
	doc   *fitz.Document
	pages int
}

func (s *source) PageCount() int {
	return s.pages
}

func (s *source) Page(number int) (document.Page, error) {
	if number < 1 || number > s.pages {
		return nil, fmt.Errorf("%w: %d (pages: %d)", document.ErrPageOutOfRange, number, s.pages)
	}

	bounds, err := s.doc.Bound(number - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read bounds of page %d: %w", number, err)
	}

	return &page{
		doc:    s.doc,
		number: number,
		width:  float64(bounds.Dx()),
		height: float64(bounds.Dy()),
	}, nil
}

func (s *source) Close() error {
	return s.doc.Close()
}

type page struct {
	doc    *fitz.Document
	number int
	width  float64
	height float64
}

func (p *page) Number() int { return p.number }

func (p *page) Size() (float64, float64) { return p.width, p.height }

func (p *page) Render(dpi float64) (image.Image, error) {
	img, err := p.doc.ImageDPI(p.number-1, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}
