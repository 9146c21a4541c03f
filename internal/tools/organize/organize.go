package organize

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

// OrganizeTool rebuilds a PDF from a page sequence
type OrganizeTool struct{}

func init() {
	registry.Register(&OrganizeTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *OrganizeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"organize",
		mcp.WithDescription(`Reorder, duplicate or drop pages of a PDF. The output contains exactly the pages of 'order', in that order.`),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF to organize"),
		),
		mcp.WithString("order",
			mcp.Required(),
			mcp.Description("New page sequence, e.g. '3,1,2', '5-1' (reversed) or '1,1,2-4' (page 1 twice)"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for the result (defaults to the directory of the input)"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing output file instead of picking a numbered name"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute writes the reorganised document
func (t *OrganizeTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing organize tool")

	order := tools.StringArg(args, "order")
	if order == "" {
		return nil, pipeline.UserInputError("missing or invalid required parameter: order")
	}

	env := pdftool.NewEnvironment(logger)
	in, err := env.ReadOne(args)
	if err != nil {
		return nil, err
	}

	proc := env.Processor()
	total, err := proc.PageCount(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("organize: %w", err)
	}
	sequence, err := pages.Sequence(order, total)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	organized, err := proc.Organize(ctx, in.Data, sequence)
	if err != nil {
		return nil, fmt.Errorf("organize: %w", err)
	}

	w, err := env.Writer(args, in.Name)
	if err != nil {
		return nil, err
	}
	file, err := pdftool.Save(ctx, w, output.OrganizedName(in.Name), "", organized)
	if err != nil {
		return nil, err
	}

	return tools.NewToolResultJSON(map[string]any{
		"input":          in.Name,
		"output":         file,
		"page_order":     sequence,
		"original_pages": total,
		"total_pages":    len(sequence),
	})
}

// ProvideExtendedInfo provides detailed usage information for the organize tool
func (t *OrganizeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Move the last page of a 10 page document to the front",
				Arguments: map[string]any{
					"file_path": "/docs/deck.pdf",
					"order":     "10,1-9",
				},
				ExpectedResult: "Writes /docs/deck_organized.pdf starting with the former page 10",
			},
			{
				Description: "Drop pages 3 and 4",
				Arguments: map[string]any{
					"file_path": "/docs/deck.pdf",
					"order":     "1-2,5-10",
				},
				ExpectedResult: "The result has 8 pages",
			},
		},
		ParameterDetails: map[string]string{
			"order": "Comma separated pages and ranges. Descending ranges reverse, repeated pages are duplicated, omitted pages are dropped.",
		},
		WhenToUse: "Use to rearrange, reverse, duplicate or delete pages in one step.",
	}
}
