package pdftool

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sammcj/pdf-toolbox/internal/document/mupdf"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
)

// RasterJob describes one call of a rasterising tool
type RasterJob struct {
	Tool     string
	Preset   raster.Preset
	Rotation int

	// NewSink creates the per-document page sink
	NewSink pipeline.SinkFactory

	// OutputName derives the result filename from the input path
	OutputName func(input string) string
}

// FileReport is the per-document entry of a tool response
type FileReport struct {
	Input          string  `json:"input"`
	Output         string  `json:"output,omitempty"`
	Status         string  `json:"status"`
	TotalPages     int     `json:"total_pages,omitempty"`
	PagesProcessed int     `json:"pages_processed"`
	SkippedPages   []int   `json:"skipped_pages,omitempty"`
	InputSize      string  `json:"input_size"`
	OutputSize     string  `json:"output_size,omitempty"`
	Reduction      float64 `json:"reduction_percent,omitempty"`
	Error          string  `json:"error,omitempty"`
	PageErrors     string  `json:"page_errors,omitempty"`
}

// BatchReport is the response of a rasterising tool
type BatchReport struct {
	SessionID string       `json:"session_id"`
	Tool      string       `json:"tool"`
	Preset    string       `json:"preset,omitempty"`
	OutputDir string       `json:"output_dir"`
	Files     []FileReport `json:"files"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Duration  string       `json:"duration"`
}

// RunRaster runs the requested inputs through the rasterising pipeline,
// reading each file as its turn comes and writing each result to the output
// directory as soon as it is finalized.
// Invalid arguments are returned as errors; per-document failures are
// reported in the BatchReport.
func (e *Environment) RunRaster(ctx context.Context, args map[string]any, job RasterJob) (*BatchReport, error) {
	settings, err := job.Preset.Settings()
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	workers, err := tools.IntArg(args, "workers", e.Config.Workers)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}
	if workers < 0 || workers > pipeline.MaxWorkers {
		return nil, pipeline.UserInputError("workers must be between 0 and %d", pipeline.MaxWorkers)
	}

	paths, err := InputPaths(args)
	if err != nil {
		return nil, err
	}
	dir, err := e.OutputDir(args, paths[0])
	if err != nil {
		return nil, err
	}
	inputs := e.LazyInputs(paths)

	writer, err := output.NewWriter(e.Logger, dir, tools.BoolArg(args, "overwrite", false))
	if err != nil {
		return nil, err
	}

	report := tools.ProgressFromContext(ctx)
	driver, err := pipeline.NewDriver(mupdf.NewLoader(e.Logger, e.Config.StrictValidation), job.NewSink, e.Logger, pipeline.Options{
		Settings: settings,
		Rotation: job.Rotation,
		Workers:  workers,
		Observer: func(ev pipeline.Event) {
			if ev.Kind == pipeline.EventProgress {
				report(filepath.Base(ev.Name), ev.Progress.Current, ev.Progress.Total)
			}
		},
		Deliver: func(ctx context.Context, name string, data []byte) (string, error) {
			return writer.Write(ctx, job.OutputName(name), data)
		},
	})
	if err != nil {
		return nil, err
	}

	e.Logger.WithFields(logrus.Fields{
		"tool":     job.Tool,
		"preset":   job.Preset,
		"files":    len(paths),
		"workers":  workers,
		"settings": settings.String(),
	}).Debug("Running rasterising tool")

	batch, err := driver.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	out := &BatchReport{
		SessionID: batch.SessionID,
		Tool:      job.Tool,
		Preset:    string(job.Preset),
		OutputDir: dir,
		Duration:  batch.Duration.Round(time.Millisecond).String(),
	}
	for _, doc := range batch.Documents {
		out.Files = append(out.Files, newFileReport(doc))
	}
	out.Succeeded, out.Failed = batch.Succeeded, batch.Failed

	return out, nil
}

func newFileReport(doc pipeline.DocumentResult) FileReport {
	fr := FileReport{
		Input:          doc.Name,
		Output:         doc.Location,
		Status:         doc.State.String(),
		TotalPages:     doc.Pages,
		PagesProcessed: doc.PagesProcessed,
		SkippedPages:   doc.SkippedPages,
		InputSize:      humanize.Bytes(uint64(doc.InputSize)),
		Error:          doc.Error,
	}
	if doc.Succeeded() {
		fr.OutputSize = humanize.Bytes(uint64(doc.OutputSize))
		fr.Reduction = Reduction(doc.InputSize, doc.OutputSize)
	}
	if doc.PageErrors != nil {
		fr.PageErrors = doc.PageErrors.Error()
	}
	return fr
}

// Reduction is the percentage saved going from in to out bytes, rounded to
// one decimal. Growth yields a negative value.
func Reduction(in, out int64) float64 {
	if in <= 0 {
		return 0
	}
	return math.Round((1-float64(out)/float64(in))*1000) / 10
}
