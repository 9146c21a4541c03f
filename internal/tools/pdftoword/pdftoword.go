package pdftoword

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/convert"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

const (
	FormatDocx = "docx"
	FormatHTML = "html"
)

// PDFToWordTool converts PDFs into Word or HTML documents with one picture per page
type PDFToWordTool struct{}

func init() {
	registry.Register(&PDFToWordTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *PDFToWordTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"pdf_to_word",
		mcp.WithDescription(`Convert PDFs to Word (.docx) or HTML. Each page is embedded as an image, so the visual layout is kept exactly but text is not editable.`),
		mcp.WithString("file_path",
			mcp.Description("Absolute path to the PDF to convert"),
		),
		mcp.WithArray("file_paths",
			mcp.Description("Absolute paths of several PDFs to convert in one batch"),
			mcp.WithStringItems(),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum(FormatDocx, FormatHTML),
			mcp.DefaultString(FormatDocx),
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

// Execute converts the requested documents
func (t *PDFToWordTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing pdf_to_word tool")

	job, err := t.job(tools.StringArg(args, "format"))
	if err != nil {
		return nil, err
	}

	report, err := pdftool.NewEnvironment(logger).RunRaster(ctx, args, job)
	if err != nil {
		return nil, fmt.Errorf("pdf_to_word: %w", err)
	}
	return tools.NewToolResultJSON(report)
}

func (t *PDFToWordTool) job(format string) (pdftool.RasterJob, error) {
	switch strings.ToLower(format) {
	case "", FormatDocx, "word":
		return pdftool.RasterJob{
			Tool:   "pdf_to_word",
			Preset: raster.PresetWord,
			NewSink: func(name string) (pipeline.PageSink, error) {
				return convert.NewDocxWriter(output.BaseName(name)), nil
			},
			OutputName: func(input string) string { return output.WordName(input, ".docx") },
		}, nil
	case FormatHTML:
		return pdftool.RasterJob{
			Tool:   "pdf_to_word",
			Preset: raster.PresetHTML,
			NewSink: func(name string) (pipeline.PageSink, error) {
				return convert.NewHTMLWriter(output.BaseName(name)), nil
			},
			OutputName: func(input string) string { return output.WordName(input, ".html") },
		}, nil
	default:
		return pdftool.RasterJob{}, pipeline.UserInputError("unknown format %q (expected %s or %s)", format, FormatDocx, FormatHTML)
	}
}

// ProvideExtendedInfo provides detailed usage information for the pdf_to_word tool
func (t *PDFToWordTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Convert a brochure to Word",
				Arguments: map[string]any{
					"file_path": "/Users/username/brochure.pdf",
				},
				ExpectedResult: "Writes /Users/username/brochure.docx with one page-sized picture per PDF page",
			},
			{
				Description: "Produce a self-contained HTML page",
				Arguments: map[string]any{
					"file_path": "/Users/username/brochure.pdf",
					"format":    "html",
				},
				ExpectedResult: "Writes brochure.html with every page inlined as a data URI image",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Text in the Word document cannot be edited",
				Solution: "Pages are embedded as images only. Run the ocr tool to extract the text.",
			},
		},
		ParameterDetails: map[string]string{
			"format": "docx (default) renders at 150% scale; html renders at 125% scale. Both use JPEG quality 0.85.",
		},
		WhenToUse:    "Use when a PDF must be opened in Word or a browser with its look intact.",
		WhenNotToUse: "Do not use when editable text is required.",
	}
}
