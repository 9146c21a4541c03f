package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sammcj/pdf-toolbox/internal/assemble"
	"github.com/sammcj/pdf-toolbox/internal/document"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoc describes a document the fake loader produces. The input bytes are
// the key into the loader's table.
type fakeDoc struct {
	pages   int
	badPage int
	openErr error
}

type fakeLoader struct {
	docs map[string]fakeDoc

	mu     sync.Mutex
	closed int

	renders atomic.Int32
}

func (l *fakeLoader) Open(_ context.Context, data []byte) (document.Source, error) {
	doc, ok := l.docs[string(data)]
	if !ok {
		return nil, errors.New("not a pdf")
	}
	if doc.openErr != nil {
		return nil, doc.openErr
	}
	return &fakeSource{doc: doc, loader: l}, nil
}

type fakeSource struct {
	doc    fakeDoc
	loader *fakeLoader
}

func (s *fakeSource) PageCount() int { return s.doc.pages }

func (s *fakeSource) Page(n int) (document.Page, error) {
	if n < 1 || n > s.doc.pages {
		return nil, document.ErrPageOutOfRange
	}
	return fakePage{n: n, bad: n == s.doc.badPage, renders: &s.loader.renders}, nil
}

func (s *fakeSource) Close() error {
	s.loader.mu.Lock()
	s.loader.closed++
	s.loader.mu.Unlock()
	return nil
}

type fakePage struct {
	n       int
	bad     bool
	renders *atomic.Int32
}

func (p fakePage) Number() int { return p.n }

func (p fakePage) Size() (float64, float64) { return 144, 72 }

func (p fakePage) Render(dpi float64) (image.Image, error) {
	if p.renders != nil {
		p.renders.Add(1)
	}
	if p.bad {
		return nil, errors.New("corrupt content stream")
	}
	w, h := int(144*dpi/72), int(72*dpi/72)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// recordingSink keeps page numbers in the order they arrive
type recordingSink struct {
	mu     sync.Mutex
	pages  []int
	reject int
}

func (s *recordingSink) AddPage(_ context.Context, page raster.RenderedPage) error {
	if page.Number == s.reject {
		return errors.New("sink rejected page")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page.Number)
	return nil
}

func (s *recordingSink) Finish() ([]byte, error) {
	if len(s.pages) == 0 {
		return nil, errors.New("nothing to write")
	}
	return []byte(fmt.Sprint(s.pages)), nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var testSettings = raster.Settings{Scale: 0.5, Format: raster.Lossy, Quality: 0.5}

func newTestDriver(t *testing.T, loader document.Loader, sinks map[string]*recordingSink, opts Options) *Driver {
	t.Helper()
	if opts.Settings == (raster.Settings{}) {
		opts.Settings = testSettings
	}
	var mu sync.Mutex
	d, err := NewDriver(loader, func(name string) (PageSink, error) {
		mu.Lock()
		defer mu.Unlock()
		s, ok := sinks[name]
		if !ok {
			s = &recordingSink{}
			sinks[name] = s
		}
		return s, nil
	}, quietLogger(), opts)
	require.NoError(t, err)
	return d
}

func TestBadPageIsSkipped(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 3, badPage: 2}}}
			sinks := map[string]*recordingSink{}
			d := newTestDriver(t, loader, sinks, Options{Workers: workers})

			batch, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
			require.NoError(t, err)
			require.Len(t, batch.Documents, 1)

			doc := batch.Documents[0]
			assert.Equal(t, StateDone, doc.State)
			assert.Equal(t, 3, doc.Pages)
			assert.Equal(t, 2, doc.PagesProcessed)
			assert.Equal(t, []int{2}, doc.SkippedPages)
			assert.Equal(t, []int{1, 3}, sinks["a.pdf"].pages)
			require.NotNil(t, doc.PageErrors)
			assert.ErrorIs(t, doc.PageErrors, ErrRender)
			assert.Equal(t, 1, loader.closed)
		})
	}
}

func TestFailedDocumentDoesNotStopBatch(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{
		"good":  {pages: 2},
		"empty": {pages: 0},
	}}
	sinks := map[string]*recordingSink{}
	d := newTestDriver(t, loader, sinks, Options{})

	batch, err := d.Run(context.Background(), []Input{
		{Name: "empty.pdf", Data: []byte("empty")},
		{Name: "junk.pdf", Data: []byte("junk")},
		{Name: "good.pdf", Data: []byte("good")},
	})
	require.NoError(t, err)
	require.Len(t, batch.Documents, 3)

	assert.Equal(t, StateFailed, batch.Documents[0].State)
	assert.ErrorIs(t, batch.Documents[0].Err, ErrLoad)
	assert.ErrorIs(t, batch.Documents[0].Err, document.ErrNoPages)

	assert.Equal(t, StateFailed, batch.Documents[1].State)
	assert.ErrorIs(t, batch.Documents[1].Err, ErrLoad)
	assert.Nil(t, batch.Documents[1].Output)

	assert.Equal(t, StateDone, batch.Documents[2].State)
	assert.NotEmpty(t, batch.Documents[2].Output)

	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 2, batch.Failed)
}

func TestAllPagesBadFailsAtSerialise(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"one": {pages: 1, badPage: 1}}}
	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{})

	batch, err := d.Run(context.Background(), []Input{{Name: "one.pdf", Data: []byte("one")}})
	require.NoError(t, err)
	doc := batch.Documents[0]
	assert.Equal(t, StateFailed, doc.State)
	assert.ErrorIs(t, doc.Err, ErrSerialize)
	assert.Equal(t, []int{1}, doc.SkippedPages)
}

func TestSinkRejectionSkipsPage(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 3}}}
	sinks := map[string]*recordingSink{"a.pdf": {reject: 3}}
	d := newTestDriver(t, loader, sinks, Options{})

	batch, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
	require.NoError(t, err)
	doc := batch.Documents[0]
	assert.Equal(t, StateDone, doc.State)
	assert.Equal(t, []int{3}, doc.SkippedPages)
	assert.ErrorIs(t, doc.PageErrors, ErrAppend)
}

func TestProgressCalledForEveryPage(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 5, badPage: 4}}}

			var calls [][2]int
			d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
				Workers: workers,
				Progress: func(current, total int) {
					calls = append(calls, [2]int{current, total})
				},
			})

			_, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
			require.NoError(t, err)
			assert.Equal(t, [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}, calls)
		})
	}
}

func TestPanickingProgressCallback(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 3}}}
	calls := 0
	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
		Progress: func(current, total int) {
			calls++
			panic("boom")
		},
	})

	batch, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
	require.NoError(t, err)
	assert.Equal(t, StateDone, batch.Documents[0].State)
	assert.Equal(t, 1, calls, "callback is not called again after panicking")
}

func TestCancellation(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 10}, "b": {pages: 2}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
		Progress: func(current, total int) {
			if current == 3 {
				cancel()
			}
		},
	})

	batch, err := d.Run(ctx, []Input{
		{Name: "a.pdf", Data: []byte("a")},
		{Name: "b.pdf", Data: []byte("b")},
	})
	require.NoError(t, err)

	a := batch.Documents[0]
	assert.Equal(t, StateFailed, a.State)
	assert.ErrorIs(t, a.Err, context.Canceled)
	assert.Equal(t, 3, a.PagesProcessed)
	assert.Nil(t, a.Output)

	assert.Equal(t, StateFailed, batch.Documents[1].State)
	assert.Equal(t, 1, loader.closed, "the opened source is closed on cancellation")
}

func TestConcurrentMatchesSequential(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 40, badPage: 17}}}
	input := []Input{{Name: "a.pdf", Data: []byte("a")}}

	seqSinks := map[string]*recordingSink{}
	seq, err := newTestDriver(t, loader, seqSinks, Options{Workers: 1}).Run(context.Background(), input)
	require.NoError(t, err)

	conSinks := map[string]*recordingSink{}
	con, err := newTestDriver(t, loader, conSinks, Options{Workers: 8}).Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, seqSinks["a.pdf"].pages, conSinks["a.pdf"].pages)
	assert.Equal(t, seq.Documents[0].Output, con.Documents[0].Output)
	assert.Equal(t, seq.Documents[0].SkippedPages, con.Documents[0].SkippedPages)
}

func TestSessionObserver(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 2, badPage: 1}}}

	var kinds []EventKind
	var states []State
	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
		Observer: func(ev Event) {
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventState {
				states = append(states, ev.State)
			}
		},
	})

	_, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
	require.NoError(t, err)
	assert.Equal(t, []State{StateOpening, StatePerPage, StateFinalizing, StateDone}, states)
	assert.Contains(t, kinds, EventPageSkipped)
	assert.Contains(t, kinds, EventProgress)
}

func TestInvalidOptions(t *testing.T) {
	loader := &fakeLoader{}
	sink := func(string) (PageSink, error) { return &recordingSink{}, nil }

	_, err := NewDriver(loader, sink, nil, Options{Settings: raster.Settings{Scale: 0}})
	assert.ErrorIs(t, err, ErrUserInput)

	_, err = NewDriver(loader, sink, nil, Options{Settings: testSettings, Rotation: 45})
	assert.ErrorIs(t, err, ErrUserInput)

	d, err := NewDriver(loader, sink, nil, Options{Settings: testSettings})
	require.NoError(t, err)
	_, err = d.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUserInput)
}

func TestAssembledOutputIsAValidPDF(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 3, badPage: 2}}}
	d, err := NewDriver(loader, func(string) (PageSink, error) {
		return assemble.New(nil)
	}, quietLogger(), Options{Settings: testSettings, Rotation: 90})
	require.NoError(t, err)

	batch, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
	require.NoError(t, err)
	doc := batch.Documents[0]
	require.Equal(t, StateDone, doc.State, doc.Error)

	n, err := api.PageCount(bytes.NewReader(doc.Output), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// photoPage renders a noisy gradient, which compresses like a photograph
type photoPage struct {
	n    int
	w, h float64
}

func (p photoPage) Number() int { return p.n }

func (p photoPage) Size() (float64, float64) { return p.w, p.h }

func (p photoPage) Render(dpi float64) (image.Image, error) {
	return photo(int(p.w*dpi/72), int(p.h*dpi/72), uint64(p.n)), nil
}

type photoSource struct {
	pages int
	w, h  float64
}

func (s photoSource) PageCount() int { return s.pages }

func (s photoSource) Page(n int) (document.Page, error) {
	return photoPage{n: n, w: s.w, h: s.h}, nil
}

func (s photoSource) Close() error { return nil }

func photo(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, 7))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			noise := rng.IntN(80)
			img.Set(x, y, color.RGBA{
				R: uint8((x*255/w + noise) % 256),
				G: uint8((y*255/h + noise) % 256),
				B: uint8((x + y + noise) % 256),
				A: 255,
			})
		}
	}
	return img
}

// photoPDF builds a document of full quality photographic pages
func photoPDF(t *testing.T, pages, w, h int) []byte {
	t.Helper()
	b, err := assemble.New(nil)
	require.NoError(t, err)
	for n := 1; n <= pages; n++ {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, photo(w, h, uint64(n)), &jpeg.Options{Quality: 95}))
		require.NoError(t, b.AppendImage(buf.Bytes()))
	}
	data, err := b.Finish()
	require.NoError(t, err)
	return data
}

func TestExtremePresetShrinksPhotographicInput(t *testing.T) {
	const w, h = 401, 299
	input := photoPDF(t, 2, w, h)

	settings, err := raster.PresetExtreme.Settings()
	require.NoError(t, err)

	loader := document.LoaderFunc(func(context.Context, []byte) (document.Source, error) {
		return photoSource{pages: 2, w: w, h: h}, nil
	})
	d, err := NewDriver(loader, func(string) (PageSink, error) {
		return assemble.New(nil)
	}, quietLogger(), Options{Settings: settings})
	require.NoError(t, err)

	batch, err := d.Run(context.Background(), []Input{{Name: "photo.pdf", Data: input}})
	require.NoError(t, err)
	doc := batch.Documents[0]
	require.Equal(t, StateDone, doc.State, doc.Error)

	assert.Equal(t, int64(len(input)), doc.InputSize)
	assert.LessOrEqual(t, doc.OutputSize, doc.InputSize)

	dims, err := api.PageDims(bytes.NewReader(doc.Output), nil)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	// round(401*0.5) x round(299*0.5)
	for _, dim := range dims {
		assert.Equal(t, types.Dim{Width: 201, Height: 150}, dim)
	}
}

func TestLazyInputsAndDelivery(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 2}, "b": {pages: 1}}}

	var steps []string
	read := func(name string, err error) func(context.Context) ([]byte, error) {
		return func(context.Context) ([]byte, error) {
			steps = append(steps, "read "+name)
			if err != nil {
				return nil, err
			}
			return []byte(name), nil
		}
	}

	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
		Deliver: func(_ context.Context, name string, data []byte) (string, error) {
			steps = append(steps, "deliver "+name)
			return "/out/" + name, nil
		},
	})

	batch, err := d.Run(context.Background(), []Input{
		{Name: "a", Read: read("a", nil)},
		{Name: "gone", Read: read("gone", errors.New("no such file"))},
		{Name: "b", Read: read("b", nil)},
	})
	require.NoError(t, err)

	// Each output is handed over before the next document is read
	assert.Equal(t, []string{"read a", "deliver a", "read gone", "read b", "deliver b"}, steps)

	a := batch.Documents[0]
	assert.Equal(t, StateDone, a.State)
	assert.Equal(t, "/out/a", a.Location)
	assert.Nil(t, a.Output)
	assert.Positive(t, a.OutputSize)
	assert.Equal(t, int64(1), a.InputSize)

	gone := batch.Documents[1]
	assert.Equal(t, StateFailed, gone.State)
	assert.ErrorIs(t, gone.Err, ErrLoad)
	assert.Empty(t, gone.Location)

	assert.Equal(t, StateDone, batch.Documents[2].State)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
}

func TestDeliveryFailureFailsDocument(t *testing.T) {
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 1}}}
	d := newTestDriver(t, loader, map[string]*recordingSink{}, Options{
		Deliver: func(context.Context, string, []byte) (string, error) {
			return "", errors.New("disk full")
		},
	})

	batch, err := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
	require.NoError(t, err)
	doc := batch.Documents[0]
	assert.Equal(t, StateFailed, doc.State)
	assert.ErrorIs(t, doc.Err, ErrWrite)
	assert.Nil(t, doc.Output)
}

// gatedSink blocks on the first page until released
type gatedSink struct {
	entered chan struct{}
	release chan struct{}
	pages   int
}

func (s *gatedSink) AddPage(_ context.Context, page raster.RenderedPage) error {
	if page.Number == 1 {
		close(s.entered)
		<-s.release
	}
	s.pages++
	return nil
}

func (s *gatedSink) Finish() ([]byte, error) {
	return []byte(fmt.Sprint(s.pages)), nil
}

func TestConcurrentRenderingWaitsForSlowConsumer(t *testing.T) {
	const workers = 2
	loader := &fakeLoader{docs: map[string]fakeDoc{"a": {pages: 12}}}
	sink := &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}

	d, err := NewDriver(loader, func(string) (PageSink, error) { return sink, nil },
		quietLogger(), Options{Settings: testSettings, Workers: workers})
	require.NoError(t, err)

	done := make(chan *BatchResult, 1)
	go func() {
		batch, _ := d.Run(context.Background(), []Input{{Name: "a.pdf", Data: []byte("a")}})
		done <- batch
	}()

	<-sink.entered
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, loader.renders.Load(), int32(workers),
		"no more than workers pages are rendered ahead of the sink")
	close(sink.release)

	batch := <-done
	require.NotNil(t, batch)
	assert.Equal(t, StateDone, batch.Documents[0].State)
	assert.Equal(t, 12, sink.pages)
	assert.Equal(t, int32(12), loader.renders.Load())
}
