package pipeline

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Input is one document submitted to a batch
type Input struct {
	Name string
	Data []byte

	// Read, when set, supplies the bytes as the document is opened instead
	// of Data. A Read error fails only this document, with ErrLoad.
	Read func(ctx context.Context) ([]byte, error)
}

// DocumentResult is the outcome for one input document
type DocumentResult struct {
	Name           string        `json:"name"`
	State          State         `json:"status"`
	Pages          int           `json:"total_pages"`
	PagesProcessed int           `json:"pages_processed"`
	SkippedPages   []int         `json:"skipped_pages,omitempty"`
	InputSize      int64         `json:"input_size"`
	OutputSize     int64         `json:"output_size,omitempty"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`

	// Location is where Options.Deliver put the output
	Location string `json:"output,omitempty"`

	// Output holds the serialised document. It is nil unless State is
	// StateDone, and nil once Options.Deliver has taken it.
	Output []byte `json:"-"`

	// Err is the document level failure, matching ErrLoad, ErrSerialize or a
	// context error
	Err error `json:"-"`

	// PageErrors aggregates the reason for every skipped page
	PageErrors *multierror.Error `json:"-"`
}

// Succeeded reports whether the document produced output
func (r DocumentResult) Succeeded() bool {
	return r.State == StateDone
}

// BatchResult lists document results in submission order
type BatchResult struct {
	SessionID string           `json:"session_id"`
	Documents []DocumentResult `json:"documents"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Duration  time.Duration    `json:"duration"`
}

func (b *BatchResult) add(r DocumentResult) {
	b.Documents = append(b.Documents, r)
	if r.Succeeded() {
		b.Succeeded++
	} else {
		b.Failed++
	}
}
