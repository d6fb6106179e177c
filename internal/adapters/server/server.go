// Package server composes HTTP API and MCP transports into one process handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/hylla/tavla/internal/adapters/server/httpapi"
	"github.com/hylla/tavla/internal/adapters/server/mcpapi"
)

// Serve-mode defaults. Binding to loopback keeps an unconfigured server off the network.
const (
	defaultBindAddress     = "127.0.0.1:8080"
	defaultAPIEndpoint     = "/api/v1"
	defaultMCPEndpoint     = "/mcp"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds the listen address, mount points and MCP server identity.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies are the app-facing ports the transports call.
type Dependencies struct {
	Boards common.BoardService
	// Watcher feeds the `/events` stream; nil disables it.
	Watcher common.StateWatcher
	// Logger receives one line per request; nil disables request logging.
	Logger *log.Logger
}

// NewHandler mounts health probes, the REST API and MCP on one mux and returns the config it used.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Boards == nil {
		return nil, Config{}, errors.New("server: board service dependency is required")
	}
	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Boards)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	api := http.StripPrefix(cfg.APIEndpoint, httpapi.NewHandler(deps.Boards, deps.Watcher))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := deps.Boards.GetState(r.Context()); err != nil {
			writeProbe(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeProbe(w, http.StatusOK, "ok")
	})
	mux.Handle(cfg.MCPEndpoint, mcpHandler)
	mux.Handle(cfg.APIEndpoint, api)
	mux.Handle(cfg.APIEndpoint+"/", api)
	return withRequestLogging(mux, deps.Logger), cfg, nil
}

// Run listens on cfg.HTTPBind and serves until ctx is canceled.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	ln, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPBind, err)
	}
	if deps.Logger != nil {
		deps.Logger.Info("serving http", "bind", ln.Addr().String(), "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
	}
	return serve(ctx, ln, handler)
}

// serve runs handler on ln. Cancelling ctx drains open requests for up to defaultShutdownTimeout;
// long-lived event streams end with the request context.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	shutdownErr := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(drainCtx)
	})
	defer stop()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// normalizeConfig fills defaults and rejects an API mount that shadows MCP.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = orDefault(cfg.HTTPBind, defaultBindAddress)
	cfg.APIEndpoint = mountPath(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = mountPath(cfg.MCPEndpoint, defaultMCPEndpoint)
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ: both %q", cfg.APIEndpoint)
	}
	cfg.ServerName = orDefault(cfg.ServerName, "tavla")
	cfg.ServerVersion = orDefault(cfg.ServerVersion, "dev")
	return cfg, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// mountPath returns "/a/b" for " a/b/ "; the root path falls back.
func mountPath(path, fallback string) string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return fallback
	}
	return "/" + trimmed
}

// writeProbe writes a small JSON probe response.
func writeProbe(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "{\"status\":%q}\n", text)
}

// statusRecorder captures the response status for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the logging wrapper.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// withRequestLogging logs method, path, status and duration for each request.
func withRequestLogging(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := log.DebugLevel
		if rec.status >= http.StatusInternalServerError {
			level = log.ErrorLevel
		} else if rec.status >= http.StatusBadRequest {
			level = log.WarnLevel
		}
		logger.Log(level, "http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(started))
	})
}
