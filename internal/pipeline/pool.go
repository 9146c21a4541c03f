package pipeline

import (
	"context"
	"sync"

	"github.com/sammcj/pdf-toolbox/internal/raster"
	"golang.org/x/sync/errgroup"
)

// MaxWorkers caps the concurrent page profile
const MaxWorkers = 16

type pageOutcome struct {
	page raster.RenderedPage
	err  error
}

// concurrent renders and encodes up to workers pages at once. Results are
// consumed strictly in page order, so the sink and the progress callback see
// the same sequence as the sequential loop. Page n is dispatched only after
// page n-workers has been appended, so at most workers encoded pages are
// held at any time. Every worker has returned before this
// function does, which keeps the source open for as long as it is used.
func (r *pageRun) concurrent(ctx context.Context, workers int) error {
	workers = min(workers, MaxWorkers)

	results := make([]chan pageOutcome, r.total)
	for i := range results {
		results[i] = make(chan pageOutcome, 1)
	}
	window := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var dispatch sync.WaitGroup
	dispatch.Add(1)
	go func() {
		defer dispatch.Done()
		for n := 1; n <= r.total; n++ {
			window <- struct{}{}
			out := results[n-1]
			if err := gctx.Err(); err != nil {
				out <- pageOutcome{err: err}
				continue
			}
			g.Go(func() error {
				page, err := r.driver.renderPage(gctx, r.src, n)
				out <- pageOutcome{page: page, err: err}
				return nil
			})
		}
	}()

	var loopErr error
	for n := 1; n <= r.total; n++ {
		o := <-results[n-1]
		if loopErr == nil {
			if err := ctx.Err(); err != nil {
				loopErr = err
			} else {
				loopErr = r.accept(ctx, n, o.page, o.err)
			}
		}
		<-window
	}

	dispatch.Wait()
	_ = g.Wait()

	return loopErr
}
