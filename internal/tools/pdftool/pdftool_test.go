package pdftool

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sammcj/pdf-toolbox/internal/config"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvironment(cfg *config.Config) *Environment {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Environment{Config: cfg, Logger: logger}
}

func TestReduction(t *testing.T) {
	assert.Equal(t, 50.0, Reduction(1000, 500))
	assert.Equal(t, 33.3, Reduction(300, 200))
	assert.Equal(t, -100.0, Reduction(100, 200))
	assert.Equal(t, 0.0, Reduction(0, 200))
}

func TestInputPaths(t *testing.T) {
	paths, err := InputPaths(map[string]any{
		"file_path":  "/docs/a.pdf",
		"file_paths": []any{"/docs/b.PDF"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/a.pdf", "/docs/b.PDF"}, paths)

	_, err = InputPaths(map[string]any{})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)

	_, err = InputPaths(map[string]any{"file_path": "relative.pdf"})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)

	_, err = InputPaths(map[string]any{"file_path": "/docs/a.docx"})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)
}

func TestReadInputs(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.pdf")
	large := filepath.Join(dir, "large.pdf")
	require.NoError(t, os.WriteFile(small, []byte("%PDF-1.7"), 0o600))
	require.NoError(t, os.WriteFile(large, make([]byte, 64), 0o600))

	cfg := config.Defaults()
	cfg.MaxFileSize = 32
	env := testEnvironment(cfg)

	inputs, err := env.ReadInputs([]string{small})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, small, inputs[0].Name)
	assert.Equal(t, "%PDF-1.7", string(inputs[0].Data))

	_, err = env.ReadInputs([]string{large})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)

	_, err = env.ReadInputs([]string{filepath.Join(dir, "missing.pdf")})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)
}

func TestLazyInputsReadOnDemand(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.pdf")
	require.NoError(t, os.WriteFile(small, []byte("%PDF-1.7"), 0o600))
	missing := filepath.Join(dir, "missing.pdf")

	cfg := config.Defaults()
	env := testEnvironment(cfg)

	inputs := env.LazyInputs([]string{missing, small})
	require.Len(t, inputs, 2)
	assert.Equal(t, missing, inputs[0].Name)
	assert.Nil(t, inputs[0].Data)

	// A missing file only surfaces when its document is read
	_, err := inputs[0].Read(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrUserInput)

	data, err := inputs[1].Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	// The file is read when the document opens, not when the batch is built
	cfg.MaxFileSize = 4
	_, err = inputs[1].Read(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrUserInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = inputs[1].Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputDir(t *testing.T) {
	cfg := config.Defaults()
	env := testEnvironment(cfg)

	dir, err := env.OutputDir(map[string]any{}, "/docs/in/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/docs/in", dir)

	cfg.OutputDir = "/srv/out"
	dir, err = env.OutputDir(map[string]any{}, "/docs/in/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/srv/out", dir)

	dir, err = env.OutputDir(map[string]any{"output_dir": "/tmp/x"}, "/docs/in/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", dir)

	_, err = env.OutputDir(map[string]any{"output_dir": "x"}, "/docs/in/a.pdf")
	assert.ErrorIs(t, err, pipeline.ErrUserInput)
}
