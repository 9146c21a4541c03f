// Package pdfops performs structural PDF operations (merge, split, rotate,
// organize, optimize, info) through pdfcpu. Operations work on in-memory
// documents and never touch page content streams.
package pdfops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sammcj/pdf-toolbox/internal/pages"
	"github.com/sirupsen/logrus"
)

// ErrOperation marks a failure reported by pdfcpu for an otherwise valid request
var ErrOperation = errors.New("pdf operation failed")

// Processor runs structural operations with a shared validation policy
type Processor struct {
	logger *logrus.Logger
	strict bool
}

// New creates a Processor. With strict set, inputs are validated against
// the PDF specification rather than pdfcpu's relaxed mode.
func New(logger *logrus.Logger, strict bool) *Processor {
	return &Processor{logger: logger, strict: strict}
}

// config returns a fresh configuration per call; pdfcpu records the current
// command on it.
func (p *Processor) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if p.strict {
		conf.ValidationMode = model.ValidationStrict
	}
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	return conf
}

// Part is one document produced by Split
type Part struct {
	Range pages.Range
	Data  []byte
}

// PageCount reads the page count of a document
func (p *Processor) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := api.PageCount(bytes.NewReader(data), p.config())
	if err != nil {
		return 0, fmt.Errorf("%w: page count: %w", ErrOperation, err)
	}
	return n, nil
}

// Merge concatenates documents in the order given
func (p *Processor) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	if len(docs) < 2 {
		return nil, fmt.Errorf("merge needs at least two documents, got %d", len(docs))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, p.config()); err != nil {
		return nil, fmt.Errorf("%w: merge: %w", ErrOperation, err)
	}

	p.logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"bytes":     buf.Len(),
	}).Debug("Merged documents")
	return buf.Bytes(), nil
}

// Split writes one document per range, in the order the ranges are given
func (p *Processor) Split(ctx context.Context, data []byte, ranges []pages.Range) ([]Part, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("split needs at least one page range")
	}

	parts := make([]Part, 0, len(ranges))
	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(data), &buf, pages.Strings(r.Pages()), p.config()); err != nil {
			return nil, fmt.Errorf("%w: split %s: %w", ErrOperation, r, err)
		}
		parts = append(parts, Part{Range: r, Data: buf.Bytes()})
	}

	p.logger.WithField("parts", len(parts)).Debug("Split document")
	return parts, nil
}

// Rotate turns the selected pages clockwise by degrees, which must be a
// non-zero multiple of 90. A nil selection rotates every page.
func (p *Processor) Rotate(ctx context.Context, data []byte, degrees int, selected []int) ([]byte, error) {
	if degrees == 0 || degrees%90 != 0 {
		return nil, fmt.Errorf("rotation must be a non-zero multiple of 90 degrees, got %d", degrees)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var selection []string
	if len(selected) > 0 {
		selection = pages.Strings(selected)
	}

	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(data), &buf, degrees, selection, p.config()); err != nil {
		return nil, fmt.Errorf("%w: rotate: %w", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

// Organize rebuilds a document from a page sequence. Pages may be
// reordered, repeated or left out.
func (p *Processor) Organize(ctx context.Context, data []byte, sequence []int) ([]byte, error) {
	if len(sequence) == 0 {
		return nil, fmt.Errorf("organize needs a non-empty page sequence")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(data), &buf, pages.Strings(sequence), p.config()); err != nil {
		return nil, fmt.Errorf("%w: organize: %w", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

// Optimize removes redundant objects and rewrites the document with object
// and xref streams.
func (p *Processor) Optimize(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, p.config()); err != nil {
		return nil, fmt.Errorf("%w: optimize: %w", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

// Validate checks a document's structure
func (p *Processor) Validate(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.Validate(bytes.NewReader(data), p.config()); err != nil {
		return fmt.Errorf("%w: validate: %w", ErrOperation, err)
	}
	return nil
}
