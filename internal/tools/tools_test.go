package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsToolEnabled(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		toolName string
		expected bool
	}{
		{"empty environment variable", "", "ocr", false},
		{"single tool enabled", "ocr", "ocr", true},
		{"tool not in list", "other", "ocr", false},
		{"case insensitive", "OCR", "ocr", true},
		{"spaces are ignored", " other , ocr ", "ocr", true},
		{"hyphen matches underscore", "pdf-info", "pdf_info", true},
		{"all enables everything", "all", "ocr", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENABLE_ADDITIONAL_TOOLS", tt.envValue)
			assert.Equal(t, tt.expected, tools.IsToolEnabled(tt.toolName))
		})
	}
}

func TestStringSliceArg(t *testing.T) {
	got, err := tools.StringSliceArg(map[string]any{"p": []any{" a.pdf ", "", "b.pdf"}}, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, got)

	got, err = tools.StringSliceArg(map[string]any{"p": "a.pdf, b.pdf"}, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, got)

	got, err = tools.StringSliceArg(map[string]any{}, "p")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = tools.StringSliceArg(map[string]any{"p": []any{1}}, "p")
	assert.Error(t, err)
	_, err = tools.StringSliceArg(map[string]any{"p": 3.0}, "p")
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	n, err := tools.IntArg(map[string]any{}, "workers", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = tools.IntArg(map[string]any{"workers": 4.0}, "workers", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = tools.IntArg(map[string]any{"workers": int64(3)}, "workers", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = tools.IntArg(map[string]any{"workers": "6"}, "workers", 1)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = tools.IntArg(map[string]any{"workers": 1.5}, "workers", 1)
	assert.Error(t, err)
	_, err = tools.IntArg(map[string]any{"workers": true}, "workers", 1)
	assert.Error(t, err)
}

func TestStringAndBoolArgs(t *testing.T) {
	args := map[string]any{"name": "  x ", "flag": true, "other": "yes"}
	assert.Equal(t, "x", tools.StringArg(args, "name"))
	assert.Equal(t, "", tools.StringArg(args, "missing"))
	assert.True(t, tools.BoolArg(args, "flag", false))
	assert.True(t, tools.BoolArg(args, "missing", true))
}

func TestProgressContext(t *testing.T) {
	// The default reporter is a no-op
	tools.ProgressFromContext(context.Background())("doc", 1, 2)

	var got []int
	ctx := tools.WithProgress(context.Background(), func(doc string, current, total int) {
		got = append(got, current)
	})
	report := tools.ProgressFromContext(ctx)
	report("doc", 1, 2)
	report("doc", 2, 2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestNewToolResultJSON(t *testing.T) {
	result, err := tools.NewToolResultJSON(map[string]int{"pages": 3})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.Equal(t, 3, decoded["pages"])
}

func TestErrorLoggerWritesEntries(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LOG_TOOL_ERRORS", "true")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, tools.InitGlobalErrorLogger(logger))

	errorLogger := tools.GetGlobalErrorLogger()
	require.True(t, errorLogger.IsEnabled())
	assert.Equal(t, filepath.Join(home, ".pdf-toolbox", "logs", "tool-errors.log"), errorLogger.GetLogFilePath())

	errorLogger.LogToolError("compress", map[string]any{
		"file_paths": []any{"/tmp/b.pdf", "/tmp/a.pdf"},
		"level":      "extreme",
	}, errors.New("load failed"), "stdio")
	require.NoError(t, errorLogger.Close())
	assert.False(t, errorLogger.IsEnabled())

	data, err := os.ReadFile(errorLogger.GetLogFilePath())
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "compress", entry["tool"])
	assert.Equal(t, "load failed", entry["msg"])
	assert.Equal(t, "extreme", entry["arg.level"])
	assert.Equal(t, []any{"/tmp/a.pdf", "/tmp/b.pdf"}, entry["documents"])

	// Logging after close is a no-op
	errorLogger.LogToolError("compress", nil, errors.New("ignored"), "stdio")
}
