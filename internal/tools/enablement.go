package tools

import (
	"os"
	"strings"
)

// IsToolEnabled checks if a tool is enabled via the ENABLE_ADDITIONAL_TOOLS environment variable.
// The environment variable should contain a comma-separated list of tool names, or "all".
// Tool names are case-insensitive and underscores and hyphens are interchangeable.
//
// Example: ENABLE_ADDITIONAL_TOOLS="ocr"
//
// Tools that require enablement:
// - ocr (needs Tesseract and its language data installed)
func IsToolEnabled(toolName string) bool {
	enabledTools := os.Getenv("ENABLE_ADDITIONAL_TOOLS")
	if enabledTools == "" {
		return false
	}

	if strings.TrimSpace(strings.ToLower(enabledTools)) == "all" {
		return true
	}

	normalisedToolName := normaliseToolName(toolName)
	for tool := range strings.SplitSeq(enabledTools, ",") {
		if normaliseToolName(tool) == normalisedToolName {
			return true
		}
	}

	return false
}

// normaliseToolName lowercases, trims and maps underscores to hyphens
func normaliseToolName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}
