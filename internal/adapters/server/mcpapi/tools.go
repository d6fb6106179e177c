package mcpapi

import (
	"context"
	"strings"

	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var (
	columnItemSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string", "description": "Existing column id; omit to create"},
			"name": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}
	subtaskItemSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "description": "Existing subtask id; omit to create"},
			"name":        map[string]any{"type": "string"},
			"isCompleted": map[string]any{"type": "boolean"},
		},
		"required": []string{"name"},
	}
)

// registerBoardTools registers list/create/update/delete/activate board tools.
func registerBoardTools(srv *mcpserver.MCPServer, boards common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.list_boards",
			mcp.WithDescription("List boards in display order with the active one marked."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := boards.ListBoards(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_boards", map[string]any{"boards": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.create_board",
			mcp.WithDescription("Create one board and make it active."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
			mcp.WithArray("columns", mcp.Description("Column names in display order"), mcp.WithStringItems()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			board, err := boards.CreateBoard(ctx, common.CreateBoardRequest{
				Name:    name,
				Columns: req.GetStringSlice("columns", nil),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_board", board)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.update_board",
			mcp.WithDescription("Rename one board and replace its column list. Columns keep their tasks when their id is passed."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
			mcp.WithArray("columns", mcp.Description("Complete desired column list"), mcp.Items(columnItemSchema)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.UpdateBoardRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.BoardID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "board_id" not found`), nil
			}
			board, err := boards.UpdateBoard(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_board", board)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.delete_board",
			mcp.WithDescription("Delete one board with all of its tasks."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := boards.DeleteBoard(ctx, boardID); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_board", map[string]any{"deleted": boardID})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.activate_board",
			mcp.WithDescription("Make one board the active board."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			board, err := boards.ActivateBoard(ctx, boardID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("activate_board", board)
		},
	)
}

// registerTaskTools registers task tools. Every task tool acts on the active board.
func registerTaskTools(srv *mcpserver.MCPServer, boards common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.create_task",
			mcp.WithDescription("Create one task on the active board. An empty status selects the first column."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("status", mcp.Description("Column name")),
			mcp.WithArray("subtasks", mcp.Description("Checklist items"), mcp.Items(subtaskItemSchema)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.CreateTaskRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Name) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "name" not found`), nil
			}
			task, err := boards.CreateTask(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.update_task",
			mcp.WithDescription("Update one task on the active board. Mode edit moves it between the previous and new status columns, status appends it to its status column, checklist keeps its place. A task on another board fails with conflict; activate its board first."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("mode", mcp.Description("edit, status or checklist"), mcp.Enum("edit", "status", "checklist")),
			mcp.WithString("name", mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("status", mcp.Description("Column name")),
			mcp.WithString("previous_status", mcp.Description("Status when the edit began; defaults to the current column")),
			mcp.WithArray("subtasks", mcp.Description("Complete desired checklist"), mcp.Items(subtaskItemSchema)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.UpdateTaskRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.TaskID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "task_id" not found`), nil
			}
			task, err := boards.UpdateTask(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.delete_task",
			mcp.WithDescription("Delete one task from the active board. A task on another board fails with conflict."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := boards.DeleteTask(ctx, taskID); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{"deleted": taskID})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.move_task",
			mcp.WithDescription("Move the task at source_index of one active-board column to destination_index of another (or the same) column."),
			mcp.WithString("task_id", mcp.Description("Optional check against the task found at source_index")),
			mcp.WithString("source_column_id", mcp.Required(), mcp.Description("Source column identifier")),
			mcp.WithNumber("source_index", mcp.Required(), mcp.Description("Zero-based index in the source column")),
			mcp.WithString("destination_column_id", mcp.Required(), mcp.Description("Destination column identifier")),
			mcp.WithNumber("destination_index", mcp.Required(), mcp.Description("Zero-based index in the destination column")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sourceColumnID, err := req.RequireString("source_column_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			destinationColumnID, err := req.RequireString("destination_column_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sourceIndex, err := req.RequireInt("source_index")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			destinationIndex, err := req.RequireInt("destination_index")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := boards.MoveTask(ctx, common.MoveTaskRequest{
				TaskID:              req.GetString("task_id", ""),
				SourceColumnID:      sourceColumnID,
				DestinationColumnID: destinationColumnID,
				SourceIndex:         sourceIndex,
				DestinationIndex:    destinationIndex,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.toggle_subtask",
			mcp.WithDescription("Flip the completion flag of one subtask of an active-board task."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("subtask_id", mcp.Required(), mcp.Description("Subtask identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			subtaskID, err := req.RequireString("subtask_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := boards.ToggleSubtask(ctx, taskID, subtaskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("toggle_subtask", task)
		},
	)
}

// registerUITools registers the presentation toggles.
func registerUITools(srv *mcpserver.MCPServer, boards common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"tavla.toggle_dark_mode",
			mcp.WithDescription("Flip the dark mode flag."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			flags, err := boards.ToggleDarkMode(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("toggle_dark_mode", flags)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tavla.toggle_side_panel",
			mcp.WithDescription("Flip the side panel flag."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			flags, err := boards.ToggleSidePanel(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("toggle_side_panel", flags)
		},
	)
}
