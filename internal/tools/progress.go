package tools

import "context"

// ProgressReporter receives per-page progress for one named document
type ProgressReporter func(document string, current, total int)

type progressKey struct{}

// WithProgress attaches a progress reporter to ctx. The MCP server sets one
// when the client sent a progress token; the CLI sets one that draws on
// stderr.
func WithProgress(ctx context.Context, report ProgressReporter) context.Context {
	return context.WithValue(ctx, progressKey{}, report)
}

// ProgressFromContext returns the reporter attached to ctx, or a no-op
func ProgressFromContext(ctx context.Context) ProgressReporter {
	if report, ok := ctx.Value(progressKey{}).(ProgressReporter); ok && report != nil {
		return report
	}
	return func(string, int, int) {}
}
