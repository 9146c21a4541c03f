package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
)

const barWidth = 30

// progressBar draws one self-overwriting line per document
type progressBar struct {
	mu     sync.Mutex
	w      io.Writer
	doc    string
	open   bool
	accent func(a ...any) string
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, accent: color.New(color.FgCyan).SprintFunc()}
}

func (p *progressBar) report(doc string, current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open && doc != p.doc {
		fmt.Fprintln(p.w)
	}
	p.doc = doc
	p.open = true

	fmt.Fprintf(p.w, "\r%s %s", p.accent(doc), renderBar(current, total))
	if total > 0 && current >= total {
		fmt.Fprintln(p.w)
		p.open = false
	}
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
	}
}

// renderBar formats "[=====     ]  50% (5/10)"
func renderBar(current, total int) string {
	if total <= 0 {
		return fmt.Sprintf("[%s]   0%% (0/0)", strings.Repeat(" ", barWidth))
	}
	current = min(max(current, 0), total)
	filled := current * barWidth / total
	pct := current * 100 / total
	return fmt.Sprintf("[%s%s] %3d%% (%d/%d)", strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), pct, current, total)
}

// batchSummary is the subset of a batch tool response the summary needs
type batchSummary struct {
	Succeeded *int `json:"succeeded"`
	Failed    *int `json:"failed"`
	Files     []struct {
		Input     string  `json:"input"`
		Output    string  `json:"output"`
		Reduction float64 `json:"reduction_percent"`
		Error     string  `json:"error"`
	} `json:"files"`
}

// decodeBatch reads the batch summary out of a tool response. Responses of
// single document tools have no succeeded/failed counts.
func decodeBatch(result *mcp.CallToolResult) (batchSummary, bool) {
	for _, content := range result.Content {
		text, ok := content.(mcp.TextContent)
		if !ok {
			continue
		}
		var summary batchSummary
		if err := json.Unmarshal([]byte(text.Text), &summary); err == nil && summary.Succeeded != nil && summary.Failed != nil {
			return summary, true
		}
	}
	return batchSummary{}, false
}

// printSummary prints a coloured outcome line per document
func printSummary(w io.Writer, summary batchSummary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, f := range summary.Files {
		switch {
		case f.Error != "":
			fmt.Fprintf(w, "%s %s: %s\n", red("FAIL"), f.Input, f.Error)
		case f.Reduction != 0:
			fmt.Fprintf(w, "%s %s -> %s (%.1f%% smaller)\n", green("OK"), f.Input, f.Output, f.Reduction)
		default:
			fmt.Fprintf(w, "%s %s -> %s\n", green("OK"), f.Input, f.Output)
		}
	}
	fmt.Fprintf(w, "%s succeeded, %s failed\n", green(*summary.Succeeded), red(*summary.Failed))
}
