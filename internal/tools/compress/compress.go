package compress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/assemble"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// CompressTool re-renders every page as a JPEG and rebuilds the PDF around
// the images
type CompressTool struct{}

func init() {
	registry.Register(&CompressTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *CompressTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"compress",
		mcp.WithDescription(`Compress PDFs by rasterising every page and re-encoding it as a JPEG at reduced resolution. Output files are named compressed-<name>.pdf. Text in the result is no longer selectable.`),
		mcp.WithString("file_path",
			mcp.Description("Absolute path to the PDF to compress"),
		),
		mcp.WithArray("file_paths",
			mcp.Description("Absolute paths of several PDFs to compress in one batch"),
			mcp.WithStringItems(),
		),
		mcp.WithString("level",
			mcp.Description("Compression level: low keeps most detail, extreme gives the smallest files"),
			mcp.Enum(raster.CompressionPresetNames()...),
			mcp.DefaultString(string(raster.DefaultCompression)),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for results (defaults to the directory of the first input)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Pages rendered in parallel per document (0 or 1 renders sequentially)"),
			mcp.Min(0),
			mcp.Max(pipeline.MaxWorkers),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace existing output files instead of picking a numbered name"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute compresses the requested documents
func (t *CompressTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing compress tool")

	preset, err := raster.ParseCompressionPreset(tools.StringArg(args, "level"))
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	env := pdftool.NewEnvironment(logger)
	report, err := env.RunRaster(ctx, args, pdftool.RasterJob{
		Tool:   "compress",
		Preset: preset,
		NewSink: func(string) (pipeline.PageSink, error) {
			return assemble.New(nil)
		},
		OutputName: output.CompressedName,
	})
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	return tools.NewToolResultJSON(report)
}

// ProvideExtendedInfo provides detailed usage information for the compress tool
func (t *CompressTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Compress a scanned report with the default level",
				Arguments: map[string]any{
					"file_path": "/Users/username/documents/scan.pdf",
				},
				ExpectedResult: "Writes /Users/username/documents/compressed-scan.pdf and reports input and output sizes",
			},
			{
				Description: "Squeeze several files as far as possible",
				Arguments: map[string]any{
					"file_paths": []string{"/data/a.pdf", "/data/b.pdf"},
					"level":      "extreme",
					"output_dir": "/data/small",
				},
				ExpectedResult: "Writes compressed-a.pdf and compressed-b.pdf into /data/small; a broken input fails on its own without stopping the other",
			},
		},
		CommonPatterns: []string{
			"Use recommended for mailing documents, extreme for archiving scans where legibility at 36 DPI is enough",
			"Set workers to 4 on multi-core machines for long documents",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "The compressed file is larger than the original",
				Solution: "Text-only PDFs are already compact; rasterising adds image data. Use compression only on scanned or image-heavy documents.",
			},
			{
				Problem:  "Some pages are listed in skipped_pages",
				Solution: "Those pages could not be rendered; the result contains the remaining pages in order. Check page_errors for the cause.",
			},
		},
		ParameterDetails: map[string]string{
			"level":   fmt.Sprintf("One of %s. low: 90%% scale, quality 0.8. recommended: 75%% scale, quality 0.6. extreme: 50%% scale, quality 0.3.", strings.Join(raster.CompressionPresetNames(), ", ")),
			"workers": fmt.Sprintf("0 or 1 processes pages one at a time. Up to %d pages are rendered concurrently; output order never changes.", pipeline.MaxWorkers),
		},
		WhenToUse:    "Use to shrink scanned or image-heavy PDFs where selectable text is not needed.",
		WhenNotToUse: "Do not use on text PDFs that must stay searchable or on forms that must stay fillable.",
	}
}
