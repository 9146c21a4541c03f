package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v3"
)

// startStreamableHTTPServer serves MCP over Streamable HTTP until ctx is cancelled
func startStreamableHTTPServer(ctx context.Context, cmd *ucli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
		mcpserver.WithHTTPContextFunc(headerChecks(logger)),
	}

	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(NewTimeoutSessionManager(sessionTimeout, logger)))
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))

	var handler http.Handler = mcpserver.NewStreamableHTTPServer(mcpServer, opts...)
	if authToken != "" {
		handler = requireToken(authToken, logger, handler)
		logger.Info("Token authentication enabled")
	}

	mux := http.NewServeMux()
	mux.Handle(endpointPath, handler)

	// Conversions of large documents can take minutes, so no write timeout
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}
	logger.Info("HTTP server stopped gracefully")
	return nil
}

// requireToken rejects requests without the expected bearer token
func requireToken(expectedToken string, logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const bearerPrefix = "Bearer "
		authHeader := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(authHeader, bearerPrefix)
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warn("Rejected request with missing or invalid token")
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// headerChecks logs protocol version and origin problems
func headerChecks(logger *logrus.Logger) mcpserver.HTTPContextFunc {
	return func(ctx context.Context, req *http.Request) context.Context {
		if version := req.Header.Get("MCP-Protocol-Version"); version != "" && !isValidProtocolVersion(version) {
			logger.Warnf("Unsupported MCP Protocol Version: %s", version)
		}
		if origin := req.Header.Get("Origin"); origin != "" && !isValidOrigin(origin) {
			logger.Warnf("Invalid Origin header: %s", origin)
		}
		return ctx
	}
}

// isValidProtocolVersion checks if the MCP protocol version is supported
func isValidProtocolVersion(version string) bool {
	return slices.Contains([]string{"2025-06-18", "2025-03-26", "2024-11-05"}, version)
}

// isValidOrigin accepts local origins only
func isValidOrigin(origin string) bool {
	for _, allowed := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if origin == allowed || strings.HasPrefix(origin, allowed+":") || strings.HasPrefix(origin, allowed+"/") {
			return true
		}
	}
	return false
}

// TimeoutSessionManager issues UUID session IDs and expires sessions that
// have been idle for longer than timeout.
type TimeoutSessionManager struct {
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewTimeoutSessionManager creates a session manager
func NewTimeoutSessionManager(timeout time.Duration, logger *logrus.Logger) *TimeoutSessionManager {
	return &TimeoutSessionManager{
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

func (t *TimeoutSessionManager) Generate() string {
	id := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.lastSeen[id] = t.now()
	return id
}

// Validate reports unknown or idle sessions as terminated
func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return false, fmt.Errorf("invalid session ID: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	seen, ok := t.lastSeen[sessionID]
	if !ok {
		return true, nil
	}
	if t.now().Sub(seen) > t.timeout {
		delete(t.lastSeen, sessionID)
		t.logger.Debugf("Session expired: %s", sessionID)
		return true, nil
	}
	t.lastSeen[sessionID] = t.now()
	return false, nil
}

func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeen, sessionID)
	t.logger.Debugf("Session terminated: %s", sessionID)
	return false, nil
}

// sweepLocked drops expired sessions, caller must hold t.mu
func (t *TimeoutSessionManager) sweepLocked() {
	now := t.now()
	for id, seen := range t.lastSeen {
		if now.Sub(seen) > t.timeout {
			delete(t.lastSeen, id)
		}
	}
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
