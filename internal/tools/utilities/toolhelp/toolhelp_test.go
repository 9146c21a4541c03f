package toolhelp

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helpfulTool struct{}

func (helpfulTool) Definition() mcp.Tool {
	return mcp.NewTool("split", mcp.WithDescription("Split a PDF into ranges. Each range becomes a file."))
}

func (helpfulTool) Execute(context.Context, *logrus.Logger, *sync.Map, map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func (helpfulTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{WhenToUse: "Extract chapters"}
}

type plainTool struct{}

func (plainTool) Definition() mcp.Tool {
	return mcp.NewTool("pdf_info", mcp.WithDescription("Report page sizes"))
}

func (plainTool) Execute(context.Context, *logrus.Logger, *sync.Map, map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("DISABLED_TOOLS", "")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry.Init(logger)
	registry.Register(helpfulTool{})
	registry.Register(plainTool{})
}

func TestOverview(t *testing.T) {
	setup(t)

	byName := map[string]ToolSummary{}
	for _, s := range Overview() {
		byName[s.Name] = s
	}
	assert.NotContains(t, byName, toolName)
	require.Contains(t, byName, "split")
	assert.Equal(t, "Split a PDF into ranges.", byName["split"].Summary)
	assert.True(t, byName["split"].ExtendedHelp)
	assert.False(t, byName["pdf_info"].ExtendedHelp)
}

func TestHelp(t *testing.T) {
	setup(t)

	response, err := Help("split")
	require.NoError(t, err)
	require.NotNil(t, response.Help)
	assert.Equal(t, "Extract chapters", response.Help.WhenToUse)
	assert.Contains(t, response.Related, "pdf_info")

	_, err = Help("nope")
	assert.Error(t, err)
	_, err = Help(toolName)
	assert.Error(t, err)
}
