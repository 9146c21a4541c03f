package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sammcj/pdf-toolbox/internal/cli"
	"github.com/sammcj/pdf-toolbox/internal/config"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/sammcj/pdf-toolbox/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

// setMemoryLimit applies the configured Go runtime soft memory limit
func setMemoryLimit(cfg *config.Config) {
	limit := config.DefaultMemoryLimit
	if cfg != nil && cfg.MemoryLimit > 0 {
		limit = cfg.MemoryLimit
	}
	debug.SetMemoryLimit(limit)
}

func main() {
	// Loads .env and the YAML config; errors are logged once logging is set up
	cfg, cfgErr := config.Get()
	setMemoryLimit(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the run mode is known
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	registry.Init(logger)

	defer performCleanup(logger)

	app := &ucli.Command{
		Name:    "pdf-toolbox",
		Usage:   "PDF tools (compress, convert, OCR, merge, split, rotate, organize) over MCP or the command line",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&ucli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&ucli.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&ucli.StringFlag{
				Name:    "auth-token",
				Usage:   "Authentication token for Streamable HTTP transport (optional)",
				Sources: ucli.EnvVars("PDF_TOOLBOX_AUTH_TOKEN"),
			},
			&ucli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&ucli.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Session timeout for Streamable HTTP transport",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					fmt.Printf("pdf-toolbox version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger, cfgErr),
		},
		Action: func(cliCtx context.Context, cmd *ucli.Command) error {
			transport := cmd.String("transport")
			isStdioMode.Store(transport == "stdio")

			configureServerLogging(logger)
			if cfgErr != nil {
				logger.WithError(cfgErr).Warn("Configuration problem, using defaults where needed")
			}

			if err := tools.InitGlobalErrorLogger(logger); err != nil {
				logger.WithError(err).Debug("Failed to initialise tool error logger")
			}

			if transport != "stdio" {
				logger.Infof("Starting pdf-toolbox version %s (commit: %s, built: %s)", Version, Commit, BuildDate)
			}

			mcpSrv := newMCPServer(logger, transport)

			logger.WithField("transport", transport).Debug("Starting server")
			switch transport {
			case "stdio":
				return mcpserver.ServeStdio(mcpSrv)
			case "sse":
				port := cmd.String("port")
				logger.WithField("port", port).Debug("Starting SSE server")
				sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(cmd.String("base-url")+"/sse"))
				return sseServer.Start(":" + port)
			case "http":
				return startStreamableHTTPServer(cliCtx, cmd, mcpSrv, logger)
			default:
				return fmt.Errorf("unsupported transport: %s", transport)
			}
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// stdout and stderr belong to the MCP protocol in stdio mode
		if !isStdioMode.Load() {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		performCleanup(logger)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a batch that finished with failed documents, 1 otherwise
func exitCode(err error) int {
	var batchErr *cli.BatchError
	if errors.As(err, &batchErr) {
		return 2
	}
	return 1
}

// cliCommand builds the "cli" command tree for running tools directly
func cliCommand(logger *logrus.Logger, cfgErr error) *ucli.Command {
	newRunner := func(cmd *ucli.Command) *cli.Runner {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(parseLogLevel())
		if cfgErr != nil {
			logger.WithError(cfgErr).Warn("Configuration problem, using defaults where needed")
		}

		format := cli.OutputText
		if strings.EqualFold(cmd.String("output"), string(cli.OutputJSON)) {
			format = cli.OutputJSON
		}
		runner := cli.NewRunner(logger, registry.GetCache(), format)
		if cmd.Bool("quiet") {
			runner.SetProgressOutput(nil)
		}
		return runner
	}

	return &ucli.Command{
		Name:  "cli",
		Usage: "Run tools directly without starting the MCP server",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   string(cli.OutputText),
				Usage:   "Output format (text or json)",
			},
			&ucli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not draw the progress bar",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "list",
				Usage: "List available tools",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					return newRunner(cmd).ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show the parameters of a tool",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: pdf-toolbox cli help <tool>")
					}
					return newRunner(cmd).HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a tool on PDF files, exits 2 when some documents failed",
				ArgsUsage:       "<tool> [--param=value ...] [FILE.pdf ...] ['{\"param\": \"value\"}']",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("usage: pdf-toolbox cli run <tool> [arguments]")
					}
					err := newRunner(cmd).RunTool(ctx, cmd.Args().First(), cmd.Args().Tail())
					if err != nil {
						if errorLogger := tools.GetGlobalErrorLogger(); errorLogger.IsEnabled() {
							errorLogger.LogToolError(cmd.Args().First(), map[string]any{"args": cmd.Args().Tail()}, err, "cli")
						}
					}
					return err
				},
			},
		},
		Before: func(ctx context.Context, cmd *ucli.Command) (context.Context, error) {
			if err := tools.InitGlobalErrorLogger(logger); err != nil {
				logger.WithError(err).Debug("Failed to initialise tool error logger")
			}
			return ctx, nil
		},
	}
}

// configureServerLogging sends logs to ~/.pdf-toolbox/logs/pdf-toolbox.log.
// In stdio mode nothing may be written to stdout or stderr, so a missing log
// file discards output instead.
func configureServerLogging(logger *logrus.Logger) {
	logLevel := parseLogLevel()
	logger.SetLevel(logLevel)
	logrus.SetLevel(logLevel)

	fallback := func() {
		if isStdioMode.Load() {
			logger.SetOutput(io.Discard)
			logrus.SetOutput(io.Discard)
			return
		}
		logger.SetOutput(os.Stderr)
		logrus.SetOutput(os.Stderr)
	}

	dir, err := config.Dir()
	if err != nil {
		fallback()
		return
	}
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fallback()
		return
	}

	file, err := os.OpenFile(filepath.Join(logDir, "pdf-toolbox.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fallback()
		return
	}
	debugLogFile.Store(file)
	logger.SetOutput(file)
	logrus.SetOutput(file)
	logger.WithField("level", logLevel.String()).Debug("Logging configured")
}

// newMCPServer registers every enabled tool with a new MCP server
func newMCPServer(logger *logrus.Logger, transport string) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer("pdf-toolbox", Version)

	enabledTools := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

	for name, tool := range enabledTools {
		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}

		mcpSrv.AddTool(tool.Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			currentTool, ok := registry.GetTool(name)
			if !ok {
				return nil, fmt.Errorf("tool not found: %s", name)
			}

			args, ok := request.Params.Arguments.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
			}

			if request.Params.Meta != nil && request.Params.Meta.ProgressToken != nil {
				toolCtx = tools.WithProgress(toolCtx, progressNotifier(toolCtx, mcpSrv, request.Params.Meta.ProgressToken, logger))
			}

			result, err := currentTool.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
			if err != nil {
				if transport != "stdio" {
					logger.WithError(err).Errorf("Tool execution failed: %s", name)
				}
				if errorLogger := tools.GetGlobalErrorLogger(); errorLogger.IsEnabled() {
					errorLogger.LogToolError(name, args, err, transport)
				}
				return mcp.NewToolResultError(err.Error()), nil
			}

			return result, nil
		})
	}

	return mcpSrv
}

// progressNotifier forwards page progress as notifications/progress. MCP
// requires progress to increase for a token, so pages are counted across
// every document of the call.
func progressNotifier(ctx context.Context, srv *mcpserver.MCPServer, token mcp.ProgressToken, logger *logrus.Logger) tools.ProgressReporter {
	var (
		mu       sync.Mutex
		done     int
		lastDoc  string
		lastPage int
		lastTot  int
	)

	return func(doc string, current, total int) {
		mu.Lock()
		if doc != lastDoc {
			done += lastTot
			lastDoc, lastPage, lastTot = doc, 0, total
		}
		if current <= lastPage && current != 0 {
			mu.Unlock()
			return
		}
		lastPage = current
		progress := done + current
		mu.Unlock()

		err := srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      progress,
			"message":       fmt.Sprintf("%s: page %d of %d", doc, current, total),
		})
		if err != nil {
			logger.WithError(err).Debug("Failed to send progress notification")
		}
	}
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	if file := debugLogFile.Swap(nil); file != nil {
		_ = file.Close()
	}

	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}
}
