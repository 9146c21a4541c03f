package split

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pages"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// SplitTool writes one PDF per page range
type SplitTool struct{}

func init() {
	registry.Register(&SplitTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *SplitTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"split",
		mcp.WithDescription(`Split a PDF into several files, one per comma separated page range. With ranges "all" every page becomes its own file.`),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF to split"),
		),
		mcp.WithString("ranges",
			mcp.Description("Page ranges, e.g. '1-3,4,5-10' gives three files (default: all, one file per page)"),
			mcp.DefaultString(pages.All),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for the results (defaults to the directory of the input)"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace existing output files instead of picking numbered names"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute splits the document
func (t *SplitTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing split tool")

	env := pdftool.NewEnvironment(logger)
	in, err := env.ReadOne(args)
	if err != nil {
		return nil, err
	}

	proc := env.Processor()
	total, err := proc.PageCount(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	ranges, err := pages.Ranges(tools.StringArg(args, "ranges"), total)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	parts, err := proc.Split(ctx, in.Data, ranges)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	w, err := env.Writer(args, in.Name)
	if err != nil {
		return nil, err
	}

	report := tools.ProgressFromContext(ctx)
	files := make([]pdftool.WrittenFile, 0, len(parts))
	for i, part := range parts {
		file, err := pdftool.Save(ctx, w, output.SplitName(in.Name, part.Range), part.Range.String(), part.Data)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
		report(output.BaseName(in.Name), i+1, len(parts))
	}

	logger.WithFields(logrus.Fields{
		"input": in.Name,
		"parts": len(files),
	}).Debug("Split completed")

	return tools.NewToolResultJSON(map[string]any{
		"input":       in.Name,
		"total_pages": total,
		"files":       files,
	})
}

// ProvideExtendedInfo provides detailed usage information for the split tool
func (t *SplitTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Separate the cover from the body",
				Arguments: map[string]any{
					"file_path": "/docs/report.pdf",
					"ranges":    "1,2-20",
				},
				ExpectedResult: "Writes report_1.pdf and report_2-20.pdf",
			},
			{
				Description: "Burst into single pages",
				Arguments: map[string]any{
					"file_path": "/docs/report.pdf",
				},
				ExpectedResult: "Writes report_1.pdf, report_2.pdf, ... one per page",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "invalid page selection",
				Solution: "Ranges must be ascending ('2-5', not '5-2') and inside the document. Use pdf_info to check the page count.",
			},
		},
		ParameterDetails: map[string]string{
			"ranges": "Comma separated list of single pages or ascending ranges, 1-based. Each item becomes one output file.",
		},
		WhenToUse: "Use to extract sections of a PDF into separate files.",
	}
}
