package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service board operations.
type AppServiceAdapter struct {
	service *app.Service
}

var (
	_ BoardService = (*AppServiceAdapter)(nil)
	_ StateWatcher = (*AppServiceAdapter)(nil)
)

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// GetState returns the whole committed store.
func (a *AppServiceAdapter) GetState(_ context.Context) (StateView, error) {
	if err := a.ready(); err != nil {
		return StateView{}, err
	}
	return StateViewFrom(a.service.Current()), nil
}

// ListBoards lists boards in display order.
func (a *AppServiceAdapter) ListBoards(_ context.Context) ([]BoardSummary, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	state := a.service.Current()
	out := make([]BoardSummary, 0, len(state.Boards))
	for _, board := range state.Boards {
		out = append(out, BoardSummary{
			ID:        board.ID,
			Name:      board.Name,
			Active:    board.ID == state.ActiveBoardID,
			TaskCount: board.TaskCount(),
			Columns:   board.ColumnNames(),
		})
	}
	return out, nil
}

// GetBoard returns one board by id.
func (a *AppServiceAdapter) GetBoard(ctx context.Context, boardID string) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	boardID, err := requireID("board_id", boardID)
	if err != nil {
		return BoardView{}, err
	}
	board, err := a.service.GetBoard(ctx, boardID)
	if err != nil {
		return BoardView{}, mapAppError("get board", err)
	}
	return boardViewFrom(board, a.service.Current().ActiveBoardID), nil
}

// CreateBoard creates board.
func (a *AppServiceAdapter) CreateBoard(ctx context.Context, in CreateBoardRequest) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	board, err := a.service.CreateBoard(ctx, app.CreateBoardInput{
		Name:    in.Name,
		Columns: in.Columns,
	})
	if err != nil {
		return BoardView{}, mapAppError("create board", err)
	}
	return boardViewFrom(board, board.ID), nil
}

// UpdateBoard updates one board.
func (a *AppServiceAdapter) UpdateBoard(ctx context.Context, in UpdateBoardRequest) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	boardID, err := requireID("board_id", in.BoardID)
	if err != nil {
		return BoardView{}, err
	}
	columns := make([]app.ColumnInput, 0, len(in.Columns))
	for _, column := range in.Columns {
		columns = append(columns, app.ColumnInput{ID: column.ID, Name: column.Name})
	}
	board, err := a.service.UpdateBoard(ctx, app.UpdateBoardInput{
		BoardID: boardID,
		Name:    in.Name,
		Columns: columns,
	})
	if err != nil {
		return BoardView{}, mapAppError("update board", err)
	}
	return boardViewFrom(board, a.service.Current().ActiveBoardID), nil
}

// DeleteBoard deletes board.
func (a *AppServiceAdapter) DeleteBoard(ctx context.Context, boardID string) error {
	if err := a.ready(); err != nil {
		return err
	}
	boardID, err := requireID("board_id", boardID)
	if err != nil {
		return err
	}
	return mapAppError("delete board", a.service.DeleteBoard(ctx, boardID))
}

// ActivateBoard changes the active board.
func (a *AppServiceAdapter) ActivateBoard(ctx context.Context, boardID string) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	boardID, err := requireID("board_id", boardID)
	if err != nil {
		return BoardView{}, err
	}
	board, err := a.service.ChangeActiveBoard(ctx, boardID)
	if err != nil {
		return BoardView{}, mapAppError("activate board", err)
	}
	return boardViewFrom(board, board.ID), nil
}

// GetTask returns one task by id.
func (a *AppServiceAdapter) GetTask(ctx context.Context, taskID string) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	taskID, err := requireID("task_id", taskID)
	if err != nil {
		return TaskView{}, err
	}
	task, err := a.service.GetTask(ctx, taskID)
	if err != nil {
		return TaskView{}, mapAppError("get task", err)
	}
	return taskViewFrom(task), nil
}

// CreateTask creates a task on the active board.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	task, err := a.service.CreateTask(ctx, app.CreateTaskInput{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Subtasks:    subtaskInputs(in.Subtasks),
	})
	if err != nil {
		return TaskView{}, mapAppError("create task", err)
	}
	return taskViewFrom(task), nil
}

// UpdateTask edits one task. An empty mode means edit.
func (a *AppServiceAdapter) UpdateTask(ctx context.Context, in UpdateTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	taskID, err := requireID("task_id", in.TaskID)
	if err != nil {
		return TaskView{}, err
	}
	mode := strings.TrimSpace(in.Mode)
	if mode == "" {
		mode = string(app.UpdateModeEdit)
	}
	var subtasks []app.SubtaskInput
	if in.Subtasks != nil {
		subtasks = subtaskInputs(in.Subtasks)
	}
	task, err := a.service.UpdateTask(ctx, app.UpdateTaskInput{
		TaskID:         taskID,
		Mode:           app.UpdateMode(mode),
		Name:           in.Name,
		Description:    in.Description,
		Status:         in.Status,
		PreviousStatus: in.PreviousStatus,
		Subtasks:       subtasks,
	})
	if err != nil {
		return TaskView{}, mapAppError("update task", err)
	}
	return taskViewFrom(task), nil
}

// SetTaskStatus moves one task to the end of the named column.
func (a *AppServiceAdapter) SetTaskStatus(ctx context.Context, taskID, status string) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	taskID, err := requireID("task_id", taskID)
	if err != nil {
		return TaskView{}, err
	}
	if strings.TrimSpace(status) == "" {
		return TaskView{}, fmt.Errorf("status is required: %w", ErrInvalidRequest)
	}
	task, err := a.service.SetTaskStatus(ctx, taskID, status)
	if err != nil {
		return TaskView{}, mapAppError("set task status", err)
	}
	return taskViewFrom(task), nil
}

// ToggleSubtask flips one checklist item.
func (a *AppServiceAdapter) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	taskID, err := requireID("task_id", taskID)
	if err != nil {
		return TaskView{}, err
	}
	subtaskID, err = requireID("subtask_id", subtaskID)
	if err != nil {
		return TaskView{}, err
	}
	task, err := a.service.ToggleSubtask(ctx, taskID, subtaskID)
	if err != nil {
		return TaskView{}, mapAppError("toggle subtask", err)
	}
	return taskViewFrom(task), nil
}

// DeleteTask deletes task.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, taskID string) error {
	if err := a.ready(); err != nil {
		return err
	}
	taskID, err := requireID("task_id", taskID)
	if err != nil {
		return err
	}
	return mapAppError("delete task", a.service.DeleteTask(ctx, taskID))
}

// MoveTask applies one drag-and-drop gesture.
func (a *AppServiceAdapter) MoveTask(ctx context.Context, in MoveTaskRequest) (TaskView, error) {
	if err := a.ready(); err != nil {
		return TaskView{}, err
	}
	if strings.TrimSpace(in.SourceColumnID) == "" || strings.TrimSpace(in.DestinationColumnID) == "" {
		return TaskView{}, fmt.Errorf("source_column_id and destination_column_id are required: %w", ErrInvalidRequest)
	}
	task, err := a.service.MoveTask(ctx, app.TaskMove{
		TaskID:              strings.TrimSpace(in.TaskID),
		SourceColumnID:      strings.TrimSpace(in.SourceColumnID),
		DestinationColumnID: strings.TrimSpace(in.DestinationColumnID),
		SourceIndex:         in.SourceIndex,
		DestinationIndex:    in.DestinationIndex,
	})
	if err != nil {
		return TaskView{}, mapAppError("move task", err)
	}
	return taskViewFrom(task), nil
}

// ToggleDarkMode flips the theme flag.
func (a *AppServiceAdapter) ToggleDarkMode(ctx context.Context) (UIFlags, error) {
	if err := a.ready(); err != nil {
		return UIFlags{}, err
	}
	if _, err := a.service.ToggleDarkMode(ctx); err != nil {
		return UIFlags{}, mapAppError("toggle dark mode", err)
	}
	return a.flags(), nil
}

// ToggleSidePanel flips the side panel flag.
func (a *AppServiceAdapter) ToggleSidePanel(ctx context.Context) (UIFlags, error) {
	if err := a.ready(); err != nil {
		return UIFlags{}, err
	}
	if _, err := a.service.ToggleSidePanel(ctx); err != nil {
		return UIFlags{}, mapAppError("toggle side panel", err)
	}
	return a.flags(), nil
}

// ListActivity lists recent change events, newest first.
func (a *AppServiceAdapter) ListActivity(ctx context.Context, limit int) ([]ChangeEventView, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	if limit == 0 {
		limit = DefaultActivityLimit
	}
	events, err := a.service.ListChangeEvents(ctx, limit)
	if err != nil {
		return nil, mapAppError("list activity", err)
	}
	out := make([]ChangeEventView, 0, len(events))
	for _, event := range events {
		out = append(out, ChangeEventView{
			ID:         event.ID,
			BoardID:    event.BoardID,
			TaskID:     event.TaskID,
			Operation:  string(event.Operation),
			Metadata:   event.Metadata,
			OccurredAt: event.OccurredAt,
		})
	}
	return out, nil
}

// Subscribe forwards to the service change broker.
func (a *AppServiceAdapter) Subscribe() (<-chan struct{}, func()) {
	return a.service.Subscribe()
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

func (a *AppServiceAdapter) flags() UIFlags {
	state := a.service.Current()
	return UIFlags{DarkMode: state.DarkMode, SidePanelOpen: state.SidePanelOpen}
}

// StateViewFrom converts a store state into its transport shape.
func StateViewFrom(state app.State) StateView {
	out := StateView{
		ActiveBoardID:    state.ActiveBoardID,
		LastViewedTaskID: state.LastViewedTaskID,
		DarkMode:         state.DarkMode,
		SidePanelOpen:    state.SidePanelOpen,
		Boards:           make([]BoardView, 0, len(state.Boards)),
	}
	for _, board := range state.Boards {
		out.Boards = append(out.Boards, boardViewFrom(board, state.ActiveBoardID))
	}
	return out
}

func boardViewFrom(board domain.Board, activeID string) BoardView {
	out := BoardView{
		ID:        board.ID,
		Name:      board.Name,
		Active:    board.ID == activeID,
		TaskCount: board.TaskCount(),
		Columns:   make([]ColumnView, 0, len(board.Columns)),
		CreatedAt: board.CreatedAt,
		UpdatedAt: board.UpdatedAt,
	}
	for _, column := range board.Columns {
		cv := ColumnView{ID: column.ID, Name: column.Name, Tasks: make([]TaskView, 0, len(column.Tasks))}
		for _, task := range column.Tasks {
			cv.Tasks = append(cv.Tasks, taskViewFrom(task))
		}
		out.Columns = append(out.Columns, cv)
	}
	return out
}

func taskViewFrom(task domain.Task) TaskView {
	out := TaskView{
		ID:                task.ID,
		Name:              task.Name,
		Description:       task.Description,
		Status:            task.Status,
		Subtasks:          make([]SubtaskView, 0, len(task.Subtasks)),
		CompletedSubtasks: task.CompletedSubtasks(),
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
	for _, subtask := range task.Subtasks {
		out.Subtasks = append(out.Subtasks, SubtaskView{ID: subtask.ID, Name: subtask.Name, IsCompleted: subtask.Completed})
	}
	return out
}

func subtaskInputs(in []SubtaskRequest) []app.SubtaskInput {
	out := make([]app.SubtaskInput, 0, len(in))
	for _, subtask := range in {
		out = append(out, app.SubtaskInput{ID: subtask.ID, Name: subtask.Name, Completed: subtask.IsCompleted})
	}
	return out
}

func requireID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required: %w", field, ErrInvalidRequest)
	}
	return value, nil
}

// mapAppError maps app and domain errors onto transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound),
		errors.Is(err, app.ErrColumnNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, app.ErrStateNotEmpty),
		errors.Is(err, app.ErrNoActiveBoard),
		errors.Is(err, app.ErrTaskNotOnActiveBoard),
		errors.Is(err, app.ErrTaskMismatch):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrInvalidNameChars),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidMode),
		errors.Is(err, app.ErrInvalidSeed),
		errors.Is(err, app.ErrInvalidSnapshot):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
