package pdfinfo

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// InfoTool reports page count, version, metadata and page sizes
type InfoTool struct{}

func init() {
	registry.Register(&InfoTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *InfoTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"pdf_info",
		mcp.WithDescription(`Show a PDF's page count, version, metadata and page sizes in points.`),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF to inspect"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute reads the document information
func (t *InfoTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	env := pdftool.NewEnvironment(logger)
	in, err := env.ReadOne(args)
	if err != nil {
		return nil, err
	}

	info, err := env.Processor().Info(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("pdf_info: %w", err)
	}

	return tools.NewToolResultJSON(map[string]any{
		"file_path": in.Name,
		"info":      info,
	})
}
