// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler serves the board tools over stateless streamable HTTP.
type Handler struct {
	http.Handler
}

// NewHandler registers every board tool against boards.
func NewHandler(cfg Config, boards common.BoardService) (*Handler, error) {
	if boards == nil {
		return nil, errors.New("mcpapi: board service is required")
	}
	cfg = cfg.withDefaults()

	srv := mcpserver.NewMCPServer(cfg.ServerName, cfg.ServerVersion, mcpserver.WithToolCapabilities(false))
	for _, register := range []func(*mcpserver.MCPServer, common.BoardService){
		registerStateTools,
		registerBoardTools,
		registerTaskTools,
		registerUITools,
	} {
		register(srv, boards)
	}
	return &Handler{
		Handler: mcpserver.NewStreamableHTTPServer(srv,
			mcpserver.WithEndpointPath(cfg.EndpointPath),
			mcpserver.WithStateLess(true),
		),
	}, nil
}

// withDefaults fills blank fields and normalizes the endpoint to one leading slash.
func (c Config) withDefaults() Config {
	c.ServerName = cmpOr(c.ServerName, "tavla")
	c.ServerVersion = cmpOr(c.ServerVersion, "dev")
	c.EndpointPath = "/" + strings.Trim(cmpOr(c.EndpointPath, "/mcp"), "/ ")
	return c
}

// cmpOr returns the trimmed value, or fallback when it is blank.
func cmpOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// registerStateTools registers whole-store read tools.
func registerStateTools(srv *mcpserver.MCPServer, boards common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.get_state",
			mcp.WithDescription("Return every board with its columns and tasks plus the UI flags."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := boards.GetState(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_state", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.list_activity",
			mcp.WithDescription("List recent committed changes, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := boards.ListActivity(ctx, req.GetInt("limit", common.DefaultActivityLimit))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_activity", map[string]any{"events": rows})
		},
	)
}

// toolResultFromError reports a service failure as a tool error prefixed with its stable code.
func toolResultFromError(err error) *mcp.CallToolResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return mcp.NewToolResultError(string(common.CodeOf(err)) + ": " + msg)
}

// invalidRequestToolResult reports malformed tool arguments.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	msg := "malformed arguments"
	if err != nil {
		msg = err.Error()
	}
	return mcp.NewToolResultError(string(common.CodeInvalidRequest) + ": " + msg)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}
