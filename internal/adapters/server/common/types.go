// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"time"
)

// DefaultActivityLimit bounds activity listings when callers omit a limit.
const DefaultActivityLimit = 50

// SubtaskView is the transport shape of one checklist item.
type SubtaskView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"isCompleted"`
}

// TaskView is the transport shape of one task.
type TaskView struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Status            string        `json:"status"`
	Subtasks          []SubtaskView `json:"subtasks"`
	CompletedSubtasks int           `json:"completed_subtasks"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ColumnView is the transport shape of one column.
type ColumnView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Tasks []TaskView `json:"tasks"`
}

// BoardView is the transport shape of one board with its full column tree.
type BoardView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Active    bool         `json:"active"`
	TaskCount int          `json:"task_count"`
	Columns   []ColumnView `json:"columns"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// BoardSummary is the compact board listing entry.
type BoardSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Active    bool     `json:"active"`
	TaskCount int      `json:"task_count"`
	Columns   []string `json:"columns"`
}

// StateView is the whole store as returned to HTTP and MCP callers.
type StateView struct {
	ActiveBoardID    string      `json:"active_board_id"`
	LastViewedTaskID string      `json:"last_viewed_task_id,omitempty"`
	DarkMode         bool        `json:"dark_mode"`
	SidePanelOpen    bool        `json:"side_panel_open"`
	Boards           []BoardView `json:"boards"`
}

// UIFlags reports the presentation toggles after a flip.
type UIFlags struct {
	DarkMode      bool `json:"dark_mode"`
	SidePanelOpen bool `json:"side_panel_open"`
}

// ChangeEventView is the transport shape of one activity entry.
type ChangeEventView struct {
	ID         int64             `json:"id"`
	BoardID    string            `json:"board_id,omitempty"`
	TaskID     string            `json:"task_id,omitempty"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// CreateBoardRequest captures input for new boards.
type CreateBoardRequest struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// ColumnRequest describes one desired column. An empty ID creates the column.
type ColumnRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UpdateBoardRequest captures a board rename and its complete desired column list.
type UpdateBoardRequest struct {
	BoardID string          `json:"board_id,omitempty"`
	Name    string          `json:"name"`
	Columns []ColumnRequest `json:"columns"`
}

// SubtaskRequest describes one desired checklist item. An empty ID creates the item.
type SubtaskRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"isCompleted"`
}

// CreateTaskRequest captures input for new tasks on the active board.
type CreateTaskRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status,omitempty"`
	Subtasks    []SubtaskRequest `json:"subtasks,omitempty"`
}

// UpdateTaskRequest captures input for task edits.
type UpdateTaskRequest struct {
	TaskID         string           `json:"task_id,omitempty"`
	Mode           string           `json:"mode,omitempty"`
	Name           string           `json:"name,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Status         string           `json:"status,omitempty"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	Subtasks       []SubtaskRequest `json:"subtasks,omitempty"`
}

// MoveTaskRequest captures one drag-and-drop gesture.
type MoveTaskRequest struct {
	TaskID              string `json:"task_id,omitempty"`
	SourceColumnID      string `json:"source_column_id"`
	DestinationColumnID string `json:"destination_column_id"`
	SourceIndex         int    `json:"source_index"`
	DestinationIndex    int    `json:"destination_index"`
}

// BoardService is the board surface shared by HTTP and MCP adapters.
type BoardService interface {
	GetState(context.Context) (StateView, error)
	ListBoards(context.Context) ([]BoardSummary, error)
	GetBoard(context.Context, string) (BoardView, error)
	CreateBoard(context.Context, CreateBoardRequest) (BoardView, error)
	UpdateBoard(context.Context, UpdateBoardRequest) (BoardView, error)
	DeleteBoard(context.Context, string) error
	ActivateBoard(context.Context, string) (BoardView, error)
	GetTask(context.Context, string) (TaskView, error)
	CreateTask(context.Context, CreateTaskRequest) (TaskView, error)
	UpdateTask(context.Context, UpdateTaskRequest) (TaskView, error)
	SetTaskStatus(context.Context, string, string) (TaskView, error)
	ToggleSubtask(context.Context, string, string) (TaskView, error)
	DeleteTask(context.Context, string) error
	MoveTask(context.Context, MoveTaskRequest) (TaskView, error)
	ToggleDarkMode(context.Context) (UIFlags, error)
	ToggleSidePanel(context.Context) (UIFlags, error)
	ListActivity(context.Context, int) ([]ChangeEventView, error)
}

// StateWatcher streams committed-change signals to long-lived transports.
type StateWatcher interface {
	Subscribe() (<-chan struct{}, func())
}
