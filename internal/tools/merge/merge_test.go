package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sammcj/pdf-toolbox/internal/assemble"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	b, err := assemble.New(nil)
	require.NoError(t, err)
	for range pages {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 60, 80)), nil))
		require.NoError(t, b.AppendImage(buf.Bytes()))
	}
	data, err := b.Finish()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestMergeExecute(t *testing.T) {
	t.Setenv("PDF_TOOLBOX_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writePDF(t, a, 2)
	writePDF(t, b, 1)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	result, err := (&MergeTool{}).Execute(context.Background(), logger, nil, map[string]any{
		"file_paths":  []any{a, b},
		"output_name": "book",
	})
	require.NoError(t, err)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var response struct {
		Output struct {
			Path string `json:"path"`
		} `json:"output"`
		TotalPages int `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &response))
	assert.Equal(t, 3, response.TotalPages)
	assert.Equal(t, filepath.Join(dir, "book.pdf"), response.Output.Path)

	data, err := os.ReadFile(response.Output.Path)
	require.NoError(t, err)
	n, err := api.PageCount(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMergeNeedsTwoFiles(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	_, err := (&MergeTool{}).Execute(context.Background(), logger, nil, map[string]any{
		"file_paths": []any{"/tmp/only.pdf"},
	})
	assert.ErrorIs(t, err, pipeline.ErrUserInput)
}
