// Package assemble builds new PDFs in which every page is a single full-bleed
// image, using pdfcpu for object management and serialisation.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sammcj/pdf-toolbox/internal/raster"
)

// ErrEmptyDocument is returned when serialising a builder with no pages
var ErrEmptyDocument = errors.New("output document has no pages")

// NewConfiguration returns the pdfcpu configuration used for assembled
// output: cross-reference and object streams enabled to keep files small.
func NewConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Builder accumulates image pages in append order
type Builder struct {
	ctx         *model.Context
	pagesIndRef *types.IndirectRef
	pagesDict   types.Dict
	imp         *pdfcpu.Import
	pages       int
}

// New creates an empty output document. A nil conf selects NewConfiguration.
func New(conf *model.Configuration) (*Builder, error) {
	if conf == nil {
		conf = NewConfiguration()
	}

	// Position "full" sizes each page to its image, drawn at the origin
	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full

	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, imp.PageDim)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	pagesIndRef, err := ctx.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to locate page tree: %w", err)
	}

	pagesDict, err := ctx.DereferenceDict(*pagesIndRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read page tree: %w", err)
	}

	return &Builder{
		ctx:         ctx,
		pagesIndRef: pagesIndRef,
		pagesDict:   pagesDict,
		imp:         imp,
	}, nil
}

// PageCount returns the number of pages appended so far
func (b *Builder) PageCount() int {
	return b.pages
}

// AppendImage embeds an encoded JPEG or PNG and appends a page of exactly
// width x height points with the image filling it.
func (b *Builder) AppendImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty image")
	}

	indRefs, err := pdfcpu.NewPagesForImage(b.ctx.XRefTable, bytes.NewReader(data), b.pagesIndRef, b.imp)
	if err != nil {
		return fmt.Errorf("failed to embed image: %w", err)
	}
	if len(indRefs) == 0 {
		return fmt.Errorf("image produced no pages")
	}

	kids := b.pagesDict.ArrayEntry("Kids")
	for _, indRef := range indRefs {
		kids = append(kids, *indRef)
	}
	b.pagesDict.Update("Kids", kids)

	b.pages += len(indRefs)
	b.pagesDict.Update("Count", types.Integer(b.pages))
	b.ctx.PageCount = b.pages

	return nil
}

// AddPage appends a rendered page; it lets a Builder act as a pipeline sink
func (b *Builder) AddPage(_ context.Context, page raster.RenderedPage) error {
	return b.AppendImage(page.Data)
}

// Serialize writes the document to w
func (b *Builder) Serialize(w io.Writer) error {
	if b.pages == 0 {
		return ErrEmptyDocument
	}
	if err := api.WriteContext(b.ctx, w); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Finish serialises the document into memory
func (b *Builder) Finish() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
