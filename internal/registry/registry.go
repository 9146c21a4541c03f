// Package registry holds the set of tools exposed over MCP and the CLI.
// Tools register themselves from init functions.
package registry

import (
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is a set of tool names to disable
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger

	// cache is the shared cache instance
	cache *sync.Map

	// additionalTools are only registered when listed in ENABLE_ADDITIONAL_TOOLS
	additionalTools = []string{
		"ocr",
	}
)

// Init initialises the registry and shared resources
func Init(l *logrus.Logger) {
	logger = l
	cache = &sync.Map{}

	parseDisabledTools()
}

// parseDisabledTools parses the DISABLED_TOOLS environment variable
func parseDisabledTools() {
	disabledTools = make(map[string]bool)

	disabledEnv := os.Getenv("DISABLED_TOOLS")
	if disabledEnv == "" {
		return
	}

	for tool := range strings.SplitSeq(disabledEnv, ",") {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		disabledTools[tool] = true
		if logger != nil {
			logger.WithField("tool", tool).Debug("Tool disabled")
		}
	}

	if logger != nil && len(disabledTools) > 0 {
		logger.WithField("count", len(disabledTools)).Debug("Parsed disabled tools from environment")
	}
}

// requiresEnablement checks if a tool requires enablement via ENABLE_ADDITIONAL_TOOLS
func requiresEnablement(toolName string) bool {
	normalised := strings.ToLower(strings.ReplaceAll(toolName, "_", "-"))
	return slices.ContainsFunc(additionalTools, func(t string) bool {
		return strings.ToLower(strings.ReplaceAll(t, "_", "-")) == normalised
	})
}

// ShouldRegisterTool checks if a tool should be registered based on:
// 1. DISABLED_TOOLS - explicit disable, highest priority
// 2. Tool's enablement requirement
// 3. ENABLE_ADDITIONAL_TOOLS (explicit enable)
func ShouldRegisterTool(toolName string) bool {
	if disabledTools[toolName] {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool disabled via environment variable")
		}
		return false
	}

	if requiresEnablement(toolName) {
		enabled := tools.IsToolEnabled(toolName)
		if logger != nil {
			if enabled {
				logger.WithField("tool", toolName).Debug("Tool enabled via ENABLE_ADDITIONAL_TOOLS")
			} else {
				logger.WithField("tool", toolName).Debug("Tool requires enablement but is not enabled")
			}
		}
		return enabled
	}

	return true
}

// Register adds a tool implementation to the registry. Tools are registered
// from init functions before .env is loaded, so enablement is checked when
// tools are looked up rather than here.
func Register(tool tools.Tool) {
	if toolRegistry == nil {
		toolRegistry = make(map[string]tools.Tool)
	}
	toolRegistry[tool.Definition().Name] = tool
}

// GetTool retrieves an enabled tool by name
func GetTool(name string) (tools.Tool, bool) {
	tool, ok := toolRegistry[name]
	if !ok || !ShouldRegisterTool(name) {
		return nil, false
	}
	return tool, true
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	filteredTools := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if ShouldRegisterTool(name) {
			filteredTools[name] = tool
		}
	}
	return filteredTools
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *sync.Map {
	return cache
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range GetEnabledTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
