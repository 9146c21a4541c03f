package tools

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLogRetentionDays is how long failed calls stay in the log
	DefaultLogRetentionDays = 60

	errorLogFileName = "tool-errors.log"
)

// ToolErrorLogger records failed tool calls as JSON lines in
// ~/.pdf-toolbox/logs/tool-errors.log when LOG_TOOL_ERRORS=true.
type ToolErrorLogger struct {
	mu       sync.Mutex
	enabled  bool
	file     *os.File
	entries  *logrus.Logger
	logger   *logrus.Logger
	filePath string
}

var (
	globalErrorLogger *ToolErrorLogger
	errorLoggerOnce   sync.Once
)

// InitGlobalErrorLogger sets up the process wide error log
func InitGlobalErrorLogger(logger *logrus.Logger) error {
	var initErr error
	errorLoggerOnce.Do(func() {
		globalErrorLogger = &ToolErrorLogger{logger: logger}
		if os.Getenv("LOG_TOOL_ERRORS") != "true" {
			return
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}
		logDir := filepath.Join(homeDir, ".pdf-toolbox", "logs")
		if err := os.MkdirAll(logDir, 0700); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		initErr = globalErrorLogger.open(filepath.Join(logDir, errorLogFileName), retentionDays())
	})
	return initErr
}

func retentionDays() int {
	if v := os.Getenv("LOG_TOOL_ERRORS_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			return days
		}
	}
	return DefaultLogRetentionDays
}

// open prunes old entries and opens path for appending
func (l *ToolErrorLogger) open(path string, keepDays int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := pruneErrorLog(path, time.Now().AddDate(0, 0, -keepDays)); err != nil && l.logger != nil {
		l.logger.WithError(err).Warn("Failed to prune tool error log")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open tool error log file: %w", err)
	}

	entries := logrus.New()
	entries.SetOutput(file)
	entries.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	l.enabled = true
	l.file = file
	l.entries = entries
	l.filePath = path
	if l.logger != nil {
		l.logger.Infof("Tool error logging enabled: %s", path)
	}
	return nil
}

// GetGlobalErrorLogger returns the global error logger, disabled when not initialised
func GetGlobalErrorLogger() *ToolErrorLogger {
	if globalErrorLogger == nil {
		return &ToolErrorLogger{}
	}
	return globalErrorLogger
}

// LogToolError records one failed call. Only the document paths and scalar
// arguments are kept.
func (l *ToolErrorLogger) LogToolError(toolName string, args map[string]any, err error, transport string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.entries == nil {
		return
	}

	fields := logrus.Fields{
		"tool":      toolName,
		"transport": transport,
	}
	if docs := documentArgs(args); len(docs) > 0 {
		fields["documents"] = docs
	}
	for key, value := range args {
		switch value.(type) {
		case string, bool, float64, int:
			if key != "file_path" {
				fields["arg."+key] = value
			}
		}
	}
	l.entries.WithFields(fields).Error(err.Error())
}

// documentArgs collects the input paths a call referred to
func documentArgs(args map[string]any) []string {
	var docs []string
	if path, ok := args["file_path"].(string); ok && path != "" {
		docs = append(docs, path)
	}
	switch list := args["file_paths"].(type) {
	case []string:
		docs = append(docs, list...)
	case []any:
		for _, item := range list {
			if path, ok := item.(string); ok {
				docs = append(docs, path)
			}
		}
	}
	sort.Strings(docs)
	return docs
}

// Close closes the log file
func (l *ToolErrorLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.entries = nil
	l.enabled = false
	return err
}

// IsEnabled returns whether error logging is enabled
func (l *ToolErrorLogger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// GetLogFilePath returns the path to the error log file
func (l *ToolErrorLogger) GetLogFilePath() string {
	return l.filePath
}

// pruneErrorLog rewrites path without entries older than cutoff. Lines that
// cannot be parsed are kept.
func pruneErrorLog(path string, cutoff time.Time) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var kept []string
	dropped := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			Time string `json:"time"`
		}
		if json.Unmarshal([]byte(line), &entry) == nil {
			if at, err := time.Parse(time.RFC3339, entry.Time); err == nil && at.Before(cutoff) {
				dropped++
				continue
			}
		}
		kept = append(kept, line)
	}
	scanErr := scanner.Err()
	_ = file.Close()
	if scanErr != nil {
		return fmt.Errorf("error reading log file: %w", scanErr)
	}
	if dropped == 0 {
		return nil
	}

	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write pruned log: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace log file: %w", err)
	}
	return nil
}
