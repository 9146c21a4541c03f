package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/sammcj/pdf-toolbox/internal/raster"
)

// Collector runs recognition on each rendered page and concatenates the text
// in page order. It satisfies the pipeline's page sink contract.
type Collector struct {
	engine    Recognizer
	languages []string
	buf       strings.Builder
	pages     int
}

// NewCollector creates a text collector for one document
func NewCollector(engine Recognizer, languages []string) *Collector {
	return &Collector{engine: engine, languages: languages}
}

// AddPage recognises the page and appends its text under a page heading
func (c *Collector) AddPage(ctx context.Context, page raster.RenderedPage) error {
	text, err := c.engine.Recognize(ctx, page.Data, c.languages)
	if err != nil {
		return fmt.Errorf("%s: %w", c.engine.Name(), err)
	}

	if c.pages > 0 {
		c.buf.WriteString("\n\n")
	}
	fmt.Fprintf(&c.buf, "--- Page %d ---\n", page.Number)
	text = strings.TrimSpace(text)
	if text == "" {
		c.buf.WriteString("[no text recognised]")
	} else {
		c.buf.WriteString(text)
	}
	c.pages++

	return nil
}

// Finish returns the collected text
func (c *Collector) Finish() ([]byte, error) {
	if c.pages == 0 {
		return nil, fmt.Errorf("no pages were recognised")
	}
	c.buf.WriteString("\n")
	return []byte(c.buf.String()), nil
}
