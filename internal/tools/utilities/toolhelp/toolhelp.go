// Package toolhelp serves the get_tool_help tool, which lists the PDF tools
// and returns their examples and troubleshooting notes.
package toolhelp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
)

const toolName = "get_tool_help"

// ToolHelpTool returns extended usage information for the other tools
type ToolHelpTool struct{}

// ToolSummary is one entry of the tool overview
type ToolSummary struct {
	Name         string `json:"name"`
	Summary      string `json:"summary"`
	ExtendedHelp bool   `json:"extended_help"`
}

// ToolHelpResponse is the get_tool_help response for a single tool
type ToolHelpResponse struct {
	ToolName    string              `json:"tool_name"`
	Description string              `json:"description"`
	InputSchema mcp.ToolInputSchema `json:"input_schema"`
	Help        *tools.ExtendedHelp `json:"help,omitempty"`
	Related     []string            `json:"related_tools,omitempty"`
}

// related lists tools that are commonly chained with each tool
var related = map[string][]string{
	"compress":    {"pdf_info", "merge"},
	"pdf_to_word": {"ocr", "compress"},
	"ocr":         {"pdf_to_word"},
	"merge":       {"organize", "compress"},
	"split":       {"pdf_info", "merge"},
	"rotate":      {"pdf_info", "organize"},
	"organize":    {"pdf_info", "split"},
	"pdf_info":    {"split", "organize"},
}

func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	return mcp.NewTool(
		toolName,
		mcp.WithDescription("Get usage examples and troubleshooting for the PDF tools. Call without tool_name for an overview of every tool."),
		mcp.WithString("tool_name",
			mcp.Description("Name of the tool to get help for, omit for the overview"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute returns the overview or the help for one tool
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(tools.StringArg(args, "tool_name"))
	if name == "" {
		return tools.NewToolResultJSON(map[string]any{"tools": Overview()})
	}

	response, err := Help(name)
	if err != nil {
		return nil, err
	}
	return tools.NewToolResultJSON(response)
}

// Overview summarises every enabled tool except this one
func Overview() []ToolSummary {
	var summaries []ToolSummary
	for _, name := range registry.GetEnabledToolNames() {
		if name == toolName {
			continue
		}
		tool, ok := registry.GetTool(name)
		if !ok {
			continue
		}
		_, extended := tool.(tools.ExtendedHelpProvider)
		summaries = append(summaries, ToolSummary{
			Name:         name,
			Summary:      firstSentence(tool.Definition().Description),
			ExtendedHelp: extended,
		})
	}
	return summaries
}

// Help builds the response for one tool
func Help(name string) (*ToolHelpResponse, error) {
	tool, ok := registry.GetTool(name)
	if !ok || name == toolName {
		return nil, fmt.Errorf("unknown or disabled tool %q, available tools: %s", name, strings.Join(helpTargets(), ", "))
	}

	def := tool.Definition()
	response := &ToolHelpResponse{
		ToolName:    def.Name,
		Description: def.Description,
		InputSchema: def.InputSchema,
	}
	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		response.Help = provider.ProvideExtendedInfo()
	}
	for _, r := range related[name] {
		if _, ok := registry.GetTool(r); ok {
			response.Related = append(response.Related, r)
		}
	}
	return response, nil
}

func helpTargets() []string {
	var names []string
	for _, name := range registry.GetEnabledToolNames() {
		if name != toolName {
			names = append(names, name)
		}
	}
	return names
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
