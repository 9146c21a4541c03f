// Package pdftool holds what the PDF tools share: input loading and size
// limits, output placement, and the batch runner for rasterising tools.
package pdftool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sammcj/pdf-toolbox/internal/config"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
)

// Environment is the resolved configuration for one tool call
type Environment struct {
	Config *config.Config
	Logger *logrus.Logger
}

// NewEnvironment loads the process configuration. A broken config file is
// logged and defaults are used.
func NewEnvironment(logger *logrus.Logger) *Environment {
	cfg, err := config.Get()
	if err != nil {
		logger.WithError(err).Warn("Invalid configuration, using defaults where needed")
	}
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Environment{Config: cfg, Logger: logger}
}

// ValidateFileSize rejects inputs larger than the configured limit
func (e *Environment) ValidateFileSize(path string, fileSize int64) error {
	if fileSize > e.Config.MaxFileSize {
		return pipeline.UserInputError("%s is %s which exceeds the maximum allowed size of %s (use %s environment variable to adjust limit)",
			filepath.Base(path), humanize.IBytes(uint64(fileSize)), humanize.IBytes(uint64(e.Config.MaxFileSize)), config.EnvMaxFileSize)
	}
	return nil
}

// InputPaths reads the file_paths argument, falling back to file_path
func InputPaths(args map[string]any) ([]string, error) {
	paths, err := tools.StringSliceArg(args, "file_paths")
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}
	if single := tools.StringArg(args, "file_path"); single != "" {
		paths = append([]string{single}, paths...)
	}
	if len(paths) == 0 {
		return nil, pipeline.UserInputError("no files selected: provide file_path or file_paths")
	}
	for _, p := range paths {
		if err := CheckPDFPath(p); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// CheckPDFPath validates that path is absolute with a .pdf extension
func CheckPDFPath(path string) error {
	if !filepath.IsAbs(path) {
		return pipeline.UserInputError("file path must be absolute: %s", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pipeline.UserInputError("file must be a PDF file (.pdf extension): %s", path)
	}
	return nil
}

// ReadInputs loads every path into memory after checking existence and size
func (e *Environment) ReadInputs(paths []string) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		data, err := e.ReadFile(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, pipeline.Input{Name: path, Data: data})
	}
	return inputs, nil
}

// LazyInputs defers reading each path until the pipeline opens it, so one
// missing or oversized file fails only its own document.
func (e *Environment) LazyInputs(paths []string) []pipeline.Input {
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		inputs = append(inputs, pipeline.Input{
			Name: path,
			Read: func(ctx context.Context) ([]byte, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return e.ReadFile(path)
			},
		})
	}
	return inputs
}

// ReadFile loads one PDF after checking that it exists and fits the size limit
func (e *Environment) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, pipeline.UserInputError("PDF file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if info.IsDir() {
		return nil, pipeline.UserInputError("path is a directory: %s", path)
	}
	if err := e.ValidateFileSize(path, info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- caller supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// OutputDir resolves where results go: the output_dir argument, then the
// configured default, then the directory of the first input.
func (e *Environment) OutputDir(args map[string]any, firstInput string) (string, error) {
	if dir := tools.StringArg(args, "output_dir"); dir != "" {
		if !filepath.IsAbs(dir) {
			return "", pipeline.UserInputError("output_dir must be an absolute path")
		}
		return dir, nil
	}
	if e.Config.OutputDir != "" {
		return e.Config.OutputDir, nil
	}
	return filepath.Dir(firstInput), nil
}
