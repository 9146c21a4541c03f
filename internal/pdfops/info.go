package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSize is a page's media box size in points
type PageSize struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Orientation reports portrait, landscape or square
func (s PageSize) Orientation() string {
	switch {
	case s.Width > s.Height:
		return "landscape"
	case s.Width < s.Height:
		return "portrait"
	default:
		return "square"
	}
}

// Info summarises a document
type Info struct {
	Pages     int        `json:"pages"`
	Version   string     `json:"version"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	Producer  string     `json:"producer,omitempty"`
	Encrypted bool       `json:"encrypted"`
	Size      int64      `json:"size_bytes"`
	SizeHuman string     `json:"size"`
	PageSizes []PageSize `json:"page_sizes"`
}

// Info reads document metadata and page dimensions
func (p *Processor) Info(ctx context.Context, data []byte) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Validation walks the page tree and the Info dict; a bare read leaves
	// the page count and metadata unset.
	pdfCtx, err := api.ReadAndValidate(bytes.NewReader(data), p.config())
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrOperation, err)
	}

	dims, err := pdfCtx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: page dimensions: %w", ErrOperation, err)
	}

	info := &Info{
		Pages:     pdfCtx.PageCount,
		Version:   pdfCtx.VersionString(),
		Title:     pdfCtx.Title,
		Author:    pdfCtx.Author,
		Producer:  pdfCtx.Producer,
		Encrypted: pdfCtx.Encrypt != nil,
		Size:      int64(len(data)),
		SizeHuman: humanize.Bytes(uint64(len(data))),
		PageSizes: make([]PageSize, len(dims)),
	}
	for i, d := range dims {
		info.PageSizes[i] = PageSize{Page: i + 1, Width: round2(d.Width), Height: round2(d.Height)}
	}
	return info, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
