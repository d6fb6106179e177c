package domain

import "time"

// ChangeOperation describes one committed board-state transition.
type ChangeOperation string

// ChangeOperation values used by the activity ledger.
const (
	ChangeOperationInitialize      ChangeOperation = "initialize"
	ChangeOperationImport          ChangeOperation = "import"
	ChangeOperationCreateBoard     ChangeOperation = "create_board"
	ChangeOperationUpdateBoard     ChangeOperation = "update_board"
	ChangeOperationDeleteBoard     ChangeOperation = "delete_board"
	ChangeOperationActivateBoard   ChangeOperation = "activate_board"
	ChangeOperationCreateTask      ChangeOperation = "create_task"
	ChangeOperationUpdateTask      ChangeOperation = "update_task"
	ChangeOperationDeleteTask      ChangeOperation = "delete_task"
	ChangeOperationMoveTask        ChangeOperation = "move_task"
	ChangeOperationViewTask        ChangeOperation = "view_task"
	ChangeOperationToggleDarkMode  ChangeOperation = "toggle_dark_mode"
	ChangeOperationToggleSidePanel ChangeOperation = "toggle_side_panel"
)

// ChangeEvent represents a single activity-log entry.
type ChangeEvent struct {
	ID         int64
	BoardID    string
	TaskID     string
	Operation  ChangeOperation
	Metadata   map[string]string
	OccurredAt time.Time
}
