package rotate

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pages"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// RotateTool turns pages by quarter turns
type RotateTool struct{}

func init() {
	registry.Register(&RotateTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *RotateTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"rotate",
		mcp.WithDescription(`Rotate pages of a PDF clockwise by 90, 180 or 270 degrees. Only the page rotation is changed; content is not re-rendered.`),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF to rotate"),
		),
		mcp.WithNumber("degrees",
			mcp.Required(),
			mcp.Description("Clockwise rotation, a multiple of 90 (negative values turn anticlockwise)"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to rotate, e.g. '1-5', '1,3,5' or 'all' (default: all)"),
			mcp.DefaultString(pages.All),
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

// Execute rotates the selected pages
func (t *RotateTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing rotate tool")

	degrees, err := tools.IntArg(args, "degrees", 0)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}
	degrees, err = raster.NormaliseRotation(degrees)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}
	if degrees == 0 {
		return nil, pipeline.UserInputError("degrees must be 90, 180 or 270 (or an equivalent multiple of 90)")
	}

	env := pdftool.NewEnvironment(logger)
	in, err := env.ReadOne(args)
	if err != nil {
		return nil, err
	}

	proc := env.Processor()
	total, err := proc.PageCount(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}
	selected, err := pages.Select(tools.StringArg(args, "pages"), total)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	rotated, err := proc.Rotate(ctx, in.Data, degrees, selected)
	if err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}

	w, err := env.Writer(args, in.Name)
	if err != nil {
		return nil, err
	}
	file, err := pdftool.Save(ctx, w, output.RotatedName(in.Name), "", rotated)
	if err != nil {
		return nil, err
	}

	return tools.NewToolResultJSON(map[string]any{
		"input":         in.Name,
		"output":        file,
		"degrees":       degrees,
		"rotated_pages": selected,
		"total_pages":   total,
	})
}

// ProvideExtendedInfo provides detailed usage information for the rotate tool
func (t *RotateTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Fix a landscape scan",
				Arguments: map[string]any{
					"file_path": "/scans/plans.pdf",
					"degrees":   90,
				},
				ExpectedResult: "Writes /scans/plans_rotated.pdf with every page turned a quarter clockwise",
			},
			{
				Description: "Flip two upside-down pages",
				Arguments: map[string]any{
					"file_path": "/scans/form.pdf",
					"degrees":   180,
					"pages":     "2,4",
				},
				ExpectedResult: "Only pages 2 and 4 are rotated",
			},
		},
		ParameterDetails: map[string]string{
			"degrees": "Normalised into 0..270; -90 is the same as 270. Values that are not multiples of 90 are rejected.",
		},
		WhenToUse: "Use to correct page orientation without touching quality.",
	}
}
