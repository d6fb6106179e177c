package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/hylla/tavla/internal/app"
	"github.com/mark3labs/mcp-go/mcp"
)

// rpcReply holds the JSON-RPC fields the tests inspect.
type rpcReply struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// rpcClient speaks JSON-RPC to one test server, numbering requests itself.
type rpcClient struct {
	t      *testing.T
	server *httptest.Server
	nextID int
}

// send posts one JSON-RPC request and decodes the reply.
func (c *rpcClient) send(method string, params map[string]any) (*http.Response, rpcReply) {
	c.t.Helper()
	c.nextID++
	payload := map[string]any{"jsonrpc": "2.0", "id": c.nextID, "method": method}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("Marshal() error = %v", err)
	}
	resp, err := c.server.Client().Post(c.server.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		c.t.Fatalf("Post(%s) error = %v", method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var reply rpcReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		c.t.Fatalf("Decode(%s) error = %v", method, err)
	}
	return resp, reply
}

// initialize performs the MCP handshake.
func (c *rpcClient) initialize() (*http.Response, rpcReply) {
	c.t.Helper()
	return c.send("initialize", map[string]any{
		"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
		"clientInfo":      map[string]any{"name": "tavla-test", "version": "1.0.0"},
	})
}

// call invokes one tool and returns the raw result object.
func (c *rpcClient) call(tool string, args map[string]any) map[string]any {
	c.t.Helper()
	_, reply := c.send("tools/call", map[string]any{"name": tool, "arguments": args})
	return reply.Result
}

// structured returns the structuredContent of a successful tool result.
func structured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	out, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return out
}

// firstText returns the first text content of a tool result.
func firstText(t *testing.T, result map[string]any) string {
	t.Helper()
	content, _ := result["content"].([]any)
	if len(content) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	entry, _ := content[0].(map[string]any)
	text, ok := entry["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", content[0])
	}
	return text
}

// newBoardServer starts an MCP server over a session-only service and completes the handshake.
func newBoardServer(t *testing.T) (*rpcClient, *app.Service) {
	t.Helper()
	n := 0
	svc := app.NewService(nil, func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}, func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }, app.ServiceConfig{})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	handler, err := NewHandler(Config{}, common.NewAppServiceAdapter(svc))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	rc := &rpcClient{t: t, server: server}
	rc.initialize()
	return rc, svc
}

// TestHandlerRequiresBoardService verifies construction fails closed.
func TestHandlerRequiresBoardService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatalf("NewHandler(nil) error = nil, want error")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	rc, _ := newBoardServer(t)

	resp, reply := rc.initialize()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if reply.ID != 2 {
		t.Fatalf("id = %v, want 2", reply.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersBoardTools verifies tool discovery lists the full board surface.
func TestHandlerRegistersBoardTools(t *testing.T) {
	rc, _ := newBoardServer(t)
	_, toolsResp := rc.send("tools/list", nil)

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"tavla.get_state",
		"tavla.list_boards",
		"tavla.create_board",
		"tavla.update_board",
		"tavla.delete_board",
		"tavla.activate_board",
		"tavla.create_task",
		"tavla.update_task",
		"tavla.delete_task",
		"tavla.move_task",
		"tavla.toggle_subtask",
		"tavla.toggle_dark_mode",
		"tavla.toggle_side_panel",
		"tavla.list_activity",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

// TestHandlerBoardToolFlow drives create, move and update tools against the real service.
func TestHandlerBoardToolFlow(t *testing.T) {
	rc, svc := newBoardServer(t)

	resp := rc.call("tavla.create_board", map[string]any{
		"name":    "Launch",
		"columns": []string{"Todo", "Done"},
	})
	board := structured(t, resp)
	if board["name"] != "Launch" || board["active"] != true {
		t.Fatalf("unexpected board payload %#v", board)
	}

	resp = rc.call("tavla.create_task", map[string]any{
		"name":     "Ship",
		"subtasks": []map[string]any{{"name": "tag"}, {"name": "notes", "isCompleted": true}},
	})
	task := structured(t, resp)
	if task["status"] != "Todo" || task["completed_subtasks"] != float64(1) {
		t.Fatalf("unexpected task payload %#v", task)
	}
	taskID, _ := task["id"].(string)

	active, _ := svc.Current().ActiveBoard()
	resp = rc.call("tavla.move_task", map[string]any{
		"task_id":               taskID,
		"source_column_id":      active.Columns[0].ID,
		"source_index":          0,
		"destination_column_id": active.Columns[1].ID,
		"destination_index":     0,
	})
	moved := structured(t, resp)
	if moved["status"] != "Done" {
		t.Fatalf("expected moved task in Done, got %#v", moved)
	}

	resp = rc.call("tavla.update_task", map[string]any{
		"task_id":     taskID,
		"mode":        "edit",
		"name":        "Ship it",
		"description": "## Notes",
		"status":      "Todo",
	})
	edited := structured(t, resp)
	if edited["name"] != "Ship it" || edited["status"] != "Todo" || edited["description"] != "## Notes" {
		t.Fatalf("unexpected edited task %#v", edited)
	}

	resp = rc.call("tavla.toggle_dark_mode", map[string]any{})
	if flags := structured(t, resp); flags["dark_mode"] != true {
		t.Fatalf("unexpected flags %#v", flags)
	}
	if !svc.Current().DarkMode {
		t.Fatalf("expected service dark mode on")
	}
}

// TestHandlerToolErrors verifies tool errors carry stable code prefixes.
func TestHandlerToolErrors(t *testing.T) {
	rc, _ := newBoardServer(t)

	cases := []struct {
		name     string
		tool     string
		args     map[string]any
		wantCode string
	}{
		{name: "missing board", tool: "tavla.activate_board", args: map[string]any{"board_id": "ghost"}, wantCode: "not_found: "},
		{name: "bad name", tool: "tavla.create_board", args: map[string]any{"name": "bad!"}, wantCode: "invalid_request: "},
		{name: "no active board", tool: "tavla.create_task", args: map[string]any{"name": "orphan"}, wantCode: "conflict: "},
		{name: "missing task id", tool: "tavla.update_task", args: map[string]any{"name": "x"}, wantCode: "invalid_request: "},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			resp := rc.call(tt.tool, tt.args)
			if isError, _ := resp["isError"].(bool); !isError {
				t.Fatalf("isError = false, want true: %#v", resp)
			}
			if text := firstText(t, resp); !strings.HasPrefix(text, tt.wantCode) {
				t.Fatalf("error text = %q, want prefix %q", text, tt.wantCode)
			}
		})
	}
}

// TestToolResultFromError verifies sentinel mapping independent of transport.
func TestToolResultFromError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: errors.Join(common.ErrInvalidRequest, errors.New("x")), want: "invalid_request: "},
		{err: errors.Join(common.ErrNotFound, errors.New("x")), want: "not_found: "},
		{err: errors.Join(common.ErrConflict, errors.New("x")), want: "conflict: "},
		{err: errors.New("boom"), want: "internal_error: "},
	}
	for _, tt := range cases {
		result := toolResultFromError(tt.err)
		text, ok := result.Content[0].(mcp.TextContent)
		if !ok {
			t.Fatalf("content[0] has unexpected type %T", result.Content[0])
		}
		if !result.IsError || !strings.HasPrefix(text.Text, tt.want) {
			t.Fatalf("toolResultFromError(%v) = %q, want prefix %q", tt.err, text.Text, tt.want)
		}
	}
}
