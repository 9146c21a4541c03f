// Package main generates docs/tools.md from the registered tool definitions
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"

	// Import all tools to register them
	_ "github.com/sammcj/pdf-toolbox/internal/imports"
)

type parameterDoc struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
}

type toolDoc struct {
	Name        string
	Description string
	Parameters  []parameterDoc
	WhenToUse   string
	Examples    []tools.ToolExample
}

var docTemplate = template.Must(template.New("tools").Parse(`# pdf-toolbox tools

Generated by scripts/generate-api-docs.go. Do not edit by hand.
{{range .}}
## {{.Name}}

{{.Description}}
{{if .WhenToUse}}
**When to use:** {{.WhenToUse}}
{{end}}
| Parameter | Type | Required | Default | Description |
|-----------|------|----------|---------|-------------|
{{range .Parameters}}| ` + "`{{.Name}}`" + ` | {{.Type}} | {{if .Required}}yes{{else}}no{{end}} | {{.Default}} | {{.Description}} |
{{end}}{{range .Examples}}
- {{.Description}}
{{end}}{{end}}`))

func main() {
	out := flag.String("out", filepath.Join("docs", "tools.md"), "output file, - for stdout")
	flag.Parse()

	// ocr and any other opt-in tools are documented too
	if err := os.Setenv("ENABLE_ADDITIONAL_TOOLS", "all"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry.Init(logger)

	docs := collect()

	var w io.Writer = os.Stdout
	if *out != "-" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		file, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		w = file
	}

	if err := docTemplate.Execute(w, docs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func collect() []toolDoc {
	enabled := registry.GetEnabledTools()
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([]toolDoc, 0, len(names))
	for _, name := range names {
		tool := enabled[name]
		def := tool.Definition()
		doc := toolDoc{Name: def.Name, Description: def.Description}

		required := make(map[string]bool, len(def.InputSchema.Required))
		for _, r := range def.InputSchema.Required {
			required[r] = true
		}

		params := make([]string, 0, len(def.InputSchema.Properties))
		for p := range def.InputSchema.Properties {
			params = append(params, p)
		}
		sort.Strings(params)

		for _, p := range params {
			prop, _ := def.InputSchema.Properties[p].(map[string]any)
			param := parameterDoc{Name: p, Required: required[p]}
			if t, ok := prop["type"].(string); ok {
				param.Type = t
			}
			if d, ok := prop["description"].(string); ok {
				param.Description = strings.ReplaceAll(d, "|", "\\|")
			}
			if d, ok := prop["default"]; ok {
				param.Default = fmt.Sprintf("`%v`", d)
			}
			doc.Parameters = append(doc.Parameters, param)
		}

		if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
			if info := provider.ProvideExtendedInfo(); info != nil {
				doc.WhenToUse = info.WhenToUse
				doc.Examples = info.Examples
			}
		}
		docs = append(docs, doc)
	}
	return docs
}
