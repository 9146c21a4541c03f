// Package pipeline drives the page-by-page rasterise, encode and reassemble
// conversion across a batch of documents. Failures are isolated: a bad page
// is skipped, a bad document is marked failed, and the batch carries on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sammcj/pdf-toolbox/internal/document"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sirupsen/logrus"
)

// PageSink receives rendered pages in page order and produces the output
// document. Implementations: assemble.Builder, the Word and HTML writers and
// the OCR text collector.
type PageSink interface {
	AddPage(ctx context.Context, page raster.RenderedPage) error
	Finish() ([]byte, error)
}

// SinkFactory creates a fresh sink for the named input document
type SinkFactory func(name string) (PageSink, error)

// Options configure a Driver
type Options struct {
	// Settings is the active preset's raster settings
	Settings raster.Settings

	// Rotation in degrees applied to every page, a multiple of 90
	Rotation int

	// Workers > 1 renders and encodes pages of a document concurrently.
	// Output and progress order are unaffected.
	Workers int

	// Progress is called with (page, total) after each page of each document
	Progress ProgressFunc

	// Observer, when set, is subscribed to the batch session
	Observer func(Event)

	// Deliver, when set, receives each serialised document while it is
	// finalizing and returns where it was stored. The driver keeps no copy
	// of delivered output. An error fails the document with ErrWrite.
	Deliver func(ctx context.Context, name string, data []byte) (string, error)
}

// Driver runs the conversion pipeline
type Driver struct {
	loader     document.Loader
	rasterizer *raster.Rasterizer
	newSink    SinkFactory
	logger     *logrus.Logger
	opts       Options
}

// NewDriver validates opts and returns a Driver
func NewDriver(loader document.Loader, newSink SinkFactory, logger *logrus.Logger, opts Options) (*Driver, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if newSink == nil {
		return nil, fmt.Errorf("sink factory is required")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInput, err)
	}
	rotation, err := raster.NormaliseRotation(opts.Rotation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInput, err)
	}
	opts.Rotation = rotation
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Driver{
		loader:     loader,
		rasterizer: raster.NewRasterizer(),
		newSink:    newSink,
		logger:     logger,
		opts:       opts,
	}, nil
}

// Run converts every input in submission order. The returned error is only
// non-nil for invalid input; per-document failures are reported in the
// result.
func (d *Driver) Run(ctx context.Context, inputs []Input) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, UserInputError("no files selected")
	}

	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	session := NewSession(names)
	if d.opts.Observer != nil {
		unsubscribe := session.Subscribe(d.opts.Observer)
		defer unsubscribe()
	}

	return d.RunSession(ctx, session, inputs)
}

// RunSession converts inputs, reporting through an existing session whose
// document list matches inputs.
func (d *Driver) RunSession(ctx context.Context, session *Session, inputs []Input) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, UserInputError("no files selected")
	}
	if session.Len() != len(inputs) {
		return nil, fmt.Errorf("session tracks %d documents, got %d inputs", session.Len(), len(inputs))
	}

	start := time.Now()
	batch := &BatchResult{SessionID: session.ID}

	d.logger.WithFields(logrus.Fields{
		"session":   session.ID,
		"documents": len(inputs),
		"settings":  d.opts.Settings.String(),
		"workers":   d.opts.Workers,
	}).Debug("Starting batch")

	for i, in := range inputs {
		batch.add(d.convert(ctx, session, i, in))
	}

	batch.Duration = time.Since(start)

	d.logger.WithFields(logrus.Fields{
		"session":   session.ID,
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
		"duration":  batch.Duration,
	}).Debug("Batch finished")

	return batch, nil
}

// convert runs one document through Opening, PerPage and Finalizing
func (d *Driver) convert(ctx context.Context, session *Session, idx int, in Input) DocumentResult {
	start := time.Now()
	res := DocumentResult{
		Name:  in.Name,
		State: StateIdle,
	}
	log := d.logger.WithFields(logrus.Fields{
		"session":  session.ID,
		"document": in.Name,
	})

	fail := func(err error) DocumentResult {
		res.State = StateFailed
		res.Err = err
		res.Error = err.Error()
		res.Output = nil
		res.Duration = time.Since(start)
		if terr := session.Transition(idx, StateFailed, err); terr != nil {
			log.WithError(terr).Debug("Session transition rejected")
		}
		log.WithError(err).Warn("Document failed")
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	d.transition(session, idx, StateOpening, log)
	res.State = StateOpening

	data := in.Data
	if in.Read != nil {
		var err error
		if data, err = in.Read(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(ctxErr)
			}
			return fail(fmt.Errorf("%w: %s: %w", ErrLoad, in.Name, err))
		}
	}
	res.InputSize = int64(len(data))

	src, err := d.loader.Open(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		return fail(fmt.Errorf("%w: %s: %w", ErrLoad, in.Name, err))
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.WithError(cerr).Debug("Failed to close source document")
		}
	}()

	total := src.PageCount()
	if total <= 0 {
		return fail(fmt.Errorf("%w: %s: %w", ErrLoad, in.Name, document.ErrNoPages))
	}
	res.Pages = total

	sink, err := d.newSink(in.Name)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %w", ErrSerialize, in.Name, err))
	}

	d.transition(session, idx, StatePerPage, log)
	res.State = StatePerPage
	session.Advance(idx, 0, total)

	run := &pageRun{
		driver:   d,
		session:  session,
		doc:      idx,
		src:      src,
		sink:     sink,
		total:    total,
		progress: d.opts.Progress,
		log:      log,
	}

	var loopErr error
	if d.opts.Workers > 1 {
		loopErr = run.concurrent(ctx, d.opts.Workers)
	} else {
		loopErr = run.sequential(ctx)
	}

	res.PagesProcessed = run.processed
	res.SkippedPages = run.skipped
	res.PageErrors = run.errs
	if loopErr != nil {
		return fail(loopErr)
	}

	d.transition(session, idx, StateFinalizing, log)
	res.State = StateFinalizing

	out, err := sink.Finish()
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %w", ErrSerialize, in.Name, err))
	}
	size := int64(len(out))

	if d.opts.Deliver != nil {
		location, err := d.opts.Deliver(ctx, in.Name, out)
		if err != nil {
			return fail(fmt.Errorf("%w: %s: %w", ErrWrite, in.Name, err))
		}
		res.Location = location
		out = nil
	}

	d.transition(session, idx, StateDone, log)
	res.State = StateDone
	res.Output = out
	res.OutputSize = size
	res.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"pages":       total,
		"processed":   res.PagesProcessed,
		"skipped":     len(res.SkippedPages),
		"input_size":  res.InputSize,
		"output_size": res.OutputSize,
	}).Debug("Document converted")

	return res
}

func (d *Driver) transition(session *Session, idx int, to State, log *logrus.Entry) {
	if err := session.Transition(idx, to, nil); err != nil {
		log.WithError(err).Debug("Session transition rejected")
	}
}

// renderPage rasterises and encodes one page. The raster surface goes out
// of scope before the function returns.
func (d *Driver) renderPage(ctx context.Context, src document.Source, n int) (raster.RenderedPage, error) {
	page, err := src.Page(n)
	if err != nil {
		return raster.RenderedPage{}, &PageError{Page: n, Stage: StageRender, Err: err}
	}

	img, err := d.rasterizer.Render(ctx, page, d.opts.Settings.Scale, d.opts.Rotation)
	if err != nil {
		return raster.RenderedPage{}, &PageError{Page: n, Stage: StageRender, Err: err}
	}

	rendered, err := raster.EncodePage(n, img, d.opts.Settings)
	if err != nil {
		return raster.RenderedPage{}, &PageError{Page: n, Stage: StageEncode, Err: err}
	}

	return rendered, nil
}

// pageRun holds the per-document state of the page loop
type pageRun struct {
	driver   *Driver
	session  *Session
	doc      int
	src      document.Source
	sink     PageSink
	total    int
	progress ProgressFunc
	log      *logrus.Entry

	processed    int
	skipped      []int
	errs         *multierror.Error
	callbackDead bool
}

func (r *pageRun) sequential(ctx context.Context) error {
	for n := 1; n <= r.total; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, renderErr := r.driver.renderPage(ctx, r.src, n)
		if err := r.accept(ctx, n, page, renderErr); err != nil {
			return err
		}
	}
	return nil
}

// accept appends a rendered page (or records why it was skipped) and then
// reports progress. It only returns an error when the context is done.
func (r *pageRun) accept(ctx context.Context, n int, page raster.RenderedPage, err error) error {
	if err == nil {
		if aerr := r.sink.AddPage(ctx, page); aerr != nil {
			err = &PageError{Page: n, Stage: StageAppend, Err: aerr}
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.skip(n, err)
	} else {
		r.processed++
	}

	r.report(n)
	return nil
}

func (r *pageRun) skip(n int, err error) {
	var pe *PageError
	if !errors.As(err, &pe) {
		pe = &PageError{Page: n, Stage: StageRender, Err: err}
	}
	r.skipped = append(r.skipped, n)
	r.errs = multierror.Append(r.errs, pe)
	r.session.Skip(r.doc, n, pe)

	r.log.WithFields(logrus.Fields{
		"page":  n,
		"stage": pe.Stage,
	}).WithError(pe.Err).Warn("Skipping page")
}

// report advances the session and invokes the progress callback. A
// panicking callback is recovered and not called again for this document.
func (r *pageRun) report(n int) {
	r.session.Advance(r.doc, n, r.total)

	if r.progress == nil || r.callbackDead {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.callbackDead = true
			r.log.WithField("panic", p).Warn("Progress callback panicked, further progress for this document suppressed")
		}
	}()
	r.progress(n, r.total)
}
