package merge

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// MergeTool concatenates PDFs in the order given
type MergeTool struct{}

func init() {
	registry.Register(&MergeTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *MergeTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"merge",
		mcp.WithDescription(`Merge two or more PDFs into one, keeping the order of file_paths. Pages are copied without re-rendering.`),
		mcp.WithArray("file_paths",
			mcp.Required(),
			mcp.Description("Absolute paths of the PDFs to merge, in output order"),
			mcp.WithStringItems(),
			mcp.MinItems(2),
		),
		mcp.WithString("output_name",
			mcp.Description("Filename of the merged document"),
			mcp.DefaultString(output.MergedName),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for the result (defaults to the directory of the first input)"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing output file instead of picking a numbered name"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute merges the documents
func (t *MergeTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing merge tool")

	paths, err := pdftool.InputPaths(args)
	if err != nil {
		return nil, err
	}
	if len(paths) < 2 {
		return nil, pipeline.UserInputError("merge needs at least two files, got %d", len(paths))
	}

	env := pdftool.NewEnvironment(logger)
	inputs, err := env.ReadInputs(paths)
	if err != nil {
		return nil, err
	}

	docs := make([][]byte, len(inputs))
	for i, in := range inputs {
		docs[i] = in.Data
	}

	proc := env.Processor()
	merged, err := proc.Merge(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	pageCount, err := proc.PageCount(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	w, err := env.Writer(args, paths[0])
	if err != nil {
		return nil, err
	}
	name := output.MergedName
	if n := tools.StringArg(args, "output_name"); n != "" {
		name = output.EnsurePDF(n)
	}
	file, err := pdftool.Save(ctx, w, name, fmt.Sprintf("1-%d", pageCount), merged)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"inputs": len(paths),
		"pages":  pageCount,
		"output": file.Path,
	}).Debug("Merge completed")

	return tools.NewToolResultJSON(map[string]any{
		"inputs":      paths,
		"output":      file,
		"total_pages": pageCount,
	})
}

// ProvideExtendedInfo provides detailed usage information for the merge tool
func (t *MergeTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Merge three chapters",
				Arguments: map[string]any{
					"file_paths":  []string{"/docs/ch1.pdf", "/docs/ch2.pdf", "/docs/ch3.pdf"},
					"output_name": "book.pdf",
				},
				ExpectedResult: "Writes /docs/book.pdf containing ch1, ch2 then ch3",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "merge: pdf operation failed",
				Solution: "One input is damaged or encrypted. Check each file with pdf_info first.",
			},
		},
		ParameterDetails: map[string]string{
			"output_name": "A bare filename; .pdf is appended when missing. Defaults to merged.pdf.",
		},
		WhenToUse: "Use to combine several PDFs into one without quality loss.",
	}
}
