package pdftool

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pdfops"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/tools"
)

// WrittenFile describes one output of a structural tool
type WrittenFile struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
	Size  string `json:"size"`
}

// Processor returns a pdfops processor using the configured validation mode
func (e *Environment) Processor() *pdfops.Processor {
	return pdfops.New(e.Logger, e.Config.StrictValidation)
}

// Writer resolves the output directory for args and opens a writer there
func (e *Environment) Writer(args map[string]any, firstInput string) (*output.Writer, error) {
	dir, err := e.OutputDir(args, firstInput)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(e.Logger, dir, tools.BoolArg(args, "overwrite", false))
}

// ReadOne loads the single file_path input of a structural tool
func (e *Environment) ReadOne(args map[string]any) (pipeline.Input, error) {
	path := tools.StringArg(args, "file_path")
	if path == "" {
		return pipeline.Input{}, pipeline.UserInputError("missing or invalid required parameter: file_path")
	}
	if err := CheckPDFPath(path); err != nil {
		return pipeline.Input{}, err
	}
	inputs, err := e.ReadInputs([]string{path})
	if err != nil {
		return pipeline.Input{}, err
	}
	return inputs[0], nil
}

// Save writes data and describes the result
func Save(ctx context.Context, w *output.Writer, name, pages string, data []byte) (WrittenFile, error) {
	path, err := w.Write(ctx, name, data)
	if err != nil {
		return WrittenFile{}, err
	}
	return WrittenFile{Path: path, Pages: pages, Size: humanize.Bytes(uint64(len(data)))}, nil
}
