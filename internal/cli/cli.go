// Package cli runs the PDF tools from the command line without starting the
// MCP server. Tools are invoked in-process through the registry.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// BatchError reports a batch that ran to completion with failed documents
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d documents failed", e.Failed, e.Total)
}

// Runner executes CLI commands against the tool registry
type Runner struct {
	logger *logrus.Logger
	cache  *sync.Map
	output OutputFormat

	stdout io.Writer
	stderr io.Writer

	// progress receives the progress bar; nil disables it
	progress io.Writer
}

// NewRunner creates a Runner writing results to stdout and the progress bar
// and summaries to stderr
func NewRunner(logger *logrus.Logger, cache *sync.Map, output OutputFormat) *Runner {
	return &Runner{
		logger:   logger,
		cache:    cache,
		output:   output,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		progress: os.Stderr,
	}
}

// SetOutput redirects results and summaries
func (r *Runner) SetOutput(stdout, stderr io.Writer) {
	r.stdout, r.stderr = stdout, stderr
}

// SetProgressOutput redirects the progress bar, nil silences it
func (r *Runner) SetProgressOutput(w io.Writer) {
	r.progress = w
}

// toolEntry is one line of the tool listing
type toolEntry struct {
	Name        string `json:"name"`
	Input       string `json:"input"`
	Description string `json:"description"`
}

// ListTools prints the enabled tools and what input each one takes
func (r *Runner) ListTools() error {
	var entries []toolEntry
	for _, t := range registry.GetEnabledTools() {
		def := t.Definition()
		entries = append(entries, toolEntry{
			Name:        def.Name,
			Input:       inputKind(newArgSpec(def)),
			Description: firstSentence(def.Description),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if r.output == OutputJSON {
		return writeJSON(r.stdout, entries)
	}

	w := tabwriter.NewWriter(r.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tINPUT\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Input, e.Description)
	}
	return w.Flush()
}

func inputKind(spec argSpec) string {
	switch {
	case spec.multiple:
		return "PDF..."
	case spec.files != "":
		return "PDF"
	default:
		return "-"
	}
}

// HelpTool prints usage, flags and worked examples for one tool
func (r *Runner) HelpTool(name string) error {
	tool, resolved, err := lookupTool(name)
	if err != nil {
		return err
	}
	def := tool.Definition()

	if r.output == OutputJSON {
		return writeJSON(r.stdout, def)
	}

	spec := newArgSpec(def)
	usage := "pdf-toolbox cli run " + resolved + " [flags]"
	switch inputKind(spec) {
	case "PDF...":
		usage += " FILE.pdf..."
	case "PDF":
		usage += " FILE.pdf"
	}
	fmt.Fprintf(r.stdout, "Usage: %s\n\n%s\n", usage, def.Description)

	var flags []param
	for _, p := range spec.sorted() {
		if p.name != spec.files && !(spec.multiple && p.name == "file_path") {
			flags = append(flags, p)
		}
	}
	if len(flags) > 0 {
		fmt.Fprintln(r.stdout, "\nFlags:")
		w := tabwriter.NewWriter(r.stdout, 0, 0, 2, ' ', 0)
		for _, p := range flags {
			line := fmt.Sprintf("  --%s\t%s\t%s", p.flag, p.kind, firstSentence(p.desc))
			if len(p.choices) > 0 {
				line += " [" + strings.Join(p.choices, "|") + "]"
			}
			if p.required {
				line += " (required)"
			}
			fmt.Fprintln(w, line)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		if help := provider.ProvideExtendedInfo(); help != nil && len(help.Examples) > 0 {
			fmt.Fprintln(r.stdout, "\nExamples:")
			for _, ex := range help.Examples {
				fmt.Fprintf(r.stdout, "  # %s\n  %s\n", ex.Description, commandLine(resolved, spec, ex.Arguments))
			}
		}
	}
	return nil
}

// commandLine renders tool arguments as the equivalent cli invocation
func commandLine(tool string, spec argSpec, args map[string]any) string {
	parts := []string{"pdf-toolbox", "cli", "run", tool}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var files []string
	for _, k := range keys {
		v := args[k]
		if k == "file_path" || k == "file_paths" {
			files = append(files, flatten(v)...)
			continue
		}
		flag := toFlagName(k)
		if b, ok := v.(bool); ok {
			if b {
				parts = append(parts, "--"+flag)
			} else {
				parts = append(parts, "--no-"+flag)
			}
			continue
		}
		parts = append(parts, "--"+flag+"="+quote(strings.Join(flatten(v), ",")))
	}
	for _, f := range files {
		parts = append(parts, quote(f))
	}
	return strings.Join(parts, " ")
}

func flatten(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprint(e)
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t'\"") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// RunTool executes a tool. Bare arguments are PDF paths, flags map to the
// tool's parameters and a JSON object may supply the rest:
//
//	pdf-toolbox cli run compress --level=extreme a.pdf b.pdf
//	pdf-toolbox cli run split --ranges=1-3,4- report.pdf
//	pdf-toolbox cli run merge '{"output_name": "book"}' a.pdf b.pdf
//
// A batch in which some documents failed returns a *BatchError after the
// result has been printed.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	tool, _, err := lookupTool(name)
	if err != nil {
		return err
	}

	params, err := newArgSpec(tool.Definition()).parse(args)
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	if r.progress != nil {
		bar := newProgressBar(r.progress)
		ctx = tools.WithProgress(ctx, bar.report)
		defer bar.finish()
	}

	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}
	if result == nil {
		return nil
	}

	if err := r.renderResult(result); err != nil {
		return err
	}
	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}

	if summary, ok := decodeBatch(result); ok {
		printSummary(r.stderr, summary)
		if *summary.Failed > 0 {
			return &BatchError{Failed: *summary.Failed, Total: *summary.Failed + *summary.Succeeded}
		}
	}
	return nil
}

func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if r.output == OutputJSON {
		return writeJSON(r.stdout, result)
	}
	for _, content := range result.Content {
		if c, ok := content.(mcp.TextContent); ok {
			fmt.Fprintln(r.stdout, c.Text)
			continue
		}
		if err := writeJSON(r.stdout, content); err != nil {
			return err
		}
	}
	return nil
}

// lookupTool finds an enabled tool, accepting kebab-case for snake_case names
func lookupTool(name string) (tools.Tool, string, error) {
	for _, candidate := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if tool, ok := registry.GetTool(candidate); ok {
			return tool, candidate, nil
		}
	}
	return nil, "", fmt.Errorf("unknown tool: %s (run 'pdf-toolbox cli list' to see available tools)", name)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstSentence(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
