// Package document defines the page-addressable view of an input PDF that the
// conversion pipeline works against. Implementations live in sub-packages so
// the pipeline can be exercised without native rendering libraries.
package document

import (
	"context"
	"errors"
	"image"
)

// ErrNoPages is returned by loaders when a document opens but contains no pages
var ErrNoPages = errors.New("document has no pages")

// ErrPageOutOfRange is returned when a page number is outside 1..PageCount
var ErrPageOutOfRange = errors.New("page number out of range")

// Source is an opened input document. It is owned by a single conversion call
// and must be closed once every page has been processed.
type Source interface {
	// PageCount returns the number of pages, always positive for an opened source
	PageCount() int

	// Page returns the handle for the 1-based page number
	Page(number int) (Page, error)

	// Close releases any native resources held by the source
	Close() error
}

// Page is a handle to one page of a Source. It is only valid while the parent
// Source is open.
type Page interface {
	// Number returns the 1-based page number
	Number() int

	// Size returns the page dimensions in points (1/72 inch)
	Size() (width, height float64)

	// Render rasterises the page at the given resolution
	Render(dpi float64) (image.Image, error)
}

// Loader opens raw document bytes as a Source
type Loader interface {
	Open(ctx context.Context, data []byte) (Source, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, data []byte) (Source, error)

// Open calls f(ctx, data)
func (f LoaderFunc) Open(ctx context.Context, data []byte) (Source, error) {
	return f(ctx, data)
}
