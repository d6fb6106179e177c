package app

import (
	"fmt"
	"strings"

	"github.com/hylla/tavla/internal/domain"
)

// UpdateMode selects how UpdateTask places the updated task.
type UpdateMode string

// UpdateMode values.
const (
	// UpdateModeChecklist replaces the task where it stands.
	UpdateModeChecklist UpdateMode = "checklist"
	// UpdateModeStatus removes the task from every column and appends it to the column named by its status.
	UpdateModeStatus UpdateMode = "status"
	// UpdateModeEdit moves the task from the column named by the previous status to the one named by its status.
	UpdateModeEdit UpdateMode = "edit"
)

// ParseUpdateMode normalizes raw into a known UpdateMode.
func ParseUpdateMode(raw string) (UpdateMode, error) {
	switch mode := UpdateMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case UpdateModeChecklist, UpdateModeStatus, UpdateModeEdit:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// TaskMove describes one drag-and-drop gesture by column ids and indexes.
type TaskMove struct {
	TaskID              string `json:"task_id"`
	SourceColumnID      string `json:"source_column_id"`
	DestinationColumnID string `json:"destination_column_id"`
	SourceIndex         int    `json:"source_index"`
	DestinationIndex    int    `json:"destination_index"`
}

// State is the complete board store. Operations never modify the receiver; each returns a new
// State whose changed boards, columns and task lists are freshly allocated.
type State struct {
	Boards           []domain.Board
	ActiveBoardID    string
	LastViewedTaskID string
	DarkMode         bool
	SidePanelOpen    bool
}

// ActiveBoard returns the board currently displayed.
func (s State) ActiveBoard() (domain.Board, bool) {
	idx := s.boardIndex(s.ActiveBoardID)
	if idx < 0 {
		return domain.Board{}, false
	}
	return s.Boards[idx], true
}

// Board returns the board with id.
func (s State) Board(id string) (domain.Board, bool) {
	idx := s.boardIndex(id)
	if idx < 0 {
		return domain.Board{}, false
	}
	return s.Boards[idx], true
}

// Task returns the task with id from any board, along with its board id.
func (s State) Task(id string) (domain.Task, string, bool) {
	for _, board := range s.Boards {
		if colIdx, taskIdx, ok := board.FindTask(id); ok {
			return board.Columns[colIdx].Tasks[taskIdx], board.ID, true
		}
	}
	return domain.Task{}, "", false
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s.Boards != nil {
		boards := make([]domain.Board, len(s.Boards))
		for idx, board := range s.Boards {
			boards[idx] = board.Clone()
		}
		s.Boards = boards
	}
	return s
}

// InitializeBoards replaces the board list wholesale and activates the first board.
func (s State) InitializeBoards(boards []domain.Board) State {
	next := s
	next.Boards = make([]domain.Board, len(boards))
	for idx, board := range boards {
		next.Boards[idx] = board.Clone()
	}
	next.ActiveBoardID = ""
	if len(next.Boards) > 0 {
		next.ActiveBoardID = next.Boards[0].ID
	}
	next.LastViewedTaskID = ""
	return next
}

// CreateBoard appends board and makes it active.
func (s State) CreateBoard(board domain.Board) State {
	next := s
	next.Boards = make([]domain.Board, 0, len(s.Boards)+1)
	next.Boards = append(next.Boards, s.Boards...)
	next.Boards = append(next.Boards, board.Clone())
	next.ActiveBoardID = board.ID
	next.LastViewedTaskID = ""
	return next
}

// UpdateBoard replaces the board with the same id and makes it active.
func (s State) UpdateBoard(board domain.Board) (State, error) {
	idx := s.boardIndex(board.ID)
	if idx < 0 {
		return s, fmt.Errorf("update board %q: %w", board.ID, ErrNotFound)
	}
	next := s.withBoard(idx, board.Clone())
	if next.ActiveBoardID != board.ID {
		next.LastViewedTaskID = ""
	}
	next.ActiveBoardID = board.ID
	return next, nil
}

// DeleteBoard removes one board. When it was active the first remaining board becomes active.
func (s State) DeleteBoard(id string) (State, error) {
	idx := s.boardIndex(id)
	if idx < 0 {
		return s, fmt.Errorf("delete board %q: %w", id, ErrNotFound)
	}
	next := s
	next.Boards = make([]domain.Board, 0, len(s.Boards)-1)
	next.Boards = append(next.Boards, s.Boards[:idx]...)
	next.Boards = append(next.Boards, s.Boards[idx+1:]...)
	if s.ActiveBoardID == id {
		next.ActiveBoardID = ""
		if len(next.Boards) > 0 {
			next.ActiveBoardID = next.Boards[0].ID
		}
		next.LastViewedTaskID = ""
	}
	return next, nil
}

// ChangeActiveBoard activates the board with id and clears the viewed task.
func (s State) ChangeActiveBoard(id string) (State, error) {
	if s.boardIndex(id) < 0 {
		return s, fmt.Errorf("change active board %q: %w", id, ErrNotFound)
	}
	next := s
	next.ActiveBoardID = id
	next.LastViewedTaskID = ""
	return next, nil
}

// CreateTask appends task to the active-board column whose name equals task.Status.
func (s State) CreateTask(task domain.Task) (State, error) {
	boardIdx, board, err := s.activeBoardForWrite()
	if err != nil {
		return s, fmt.Errorf("create task: %w", err)
	}
	if _, _, exists := board.FindTask(task.ID); exists {
		return s, fmt.Errorf("create task %q: duplicate id: %w", task.ID, ErrInvariantBroken)
	}
	colIdx := board.ColumnIndexByName(task.Status)
	if colIdx < 0 {
		return s, fmt.Errorf("create task: status %q: %w", task.Status, ErrColumnNotFound)
	}
	column := board.Columns[colIdx]
	column.Tasks = appendTask(column.Tasks, task.Clone())
	board = withColumn(board, colIdx, column)
	return s.withBoard(boardIdx, board), nil
}

// UpdateTask writes task back into the active board according to mode. previousStatus is only
// read in edit mode; when empty the task's current column is used.
func (s State) UpdateTask(task domain.Task, mode UpdateMode, previousStatus string) (State, error) {
	boardIdx, board, err := s.activeBoardForWrite()
	if err != nil {
		return s, fmt.Errorf("update task: %w", err)
	}
	curCol, curIdx, ok := board.FindTask(task.ID)
	if !ok {
		return s, fmt.Errorf("update task %q: %w", task.ID, ErrNotFound)
	}
	task = task.Clone()

	switch mode {
	case UpdateModeChecklist:
		column := board.Columns[curCol]
		task.Status = column.Name
		column.Tasks = replaceTask(column.Tasks, curIdx, task)
		board = withColumn(board, curCol, column)

	case UpdateModeStatus:
		destCol := board.ColumnIndexByName(task.Status)
		if destCol < 0 {
			return s, fmt.Errorf("update task status %q: %w", task.Status, ErrColumnNotFound)
		}
		for colIdx, column := range board.Columns {
			if idx := column.TaskIndex(task.ID); idx >= 0 {
				column.Tasks = removeTask(column.Tasks, idx)
				board = withColumn(board, colIdx, column)
			}
		}
		column := board.Columns[destCol]
		column.Tasks = appendTask(column.Tasks, task)
		board = withColumn(board, destCol, column)

	case UpdateModeEdit:
		fromCol := curCol
		if previousStatus = strings.TrimSpace(previousStatus); previousStatus != "" {
			fromCol = board.ColumnIndexByName(previousStatus)
			if fromCol < 0 {
				return s, fmt.Errorf("update task previous status %q: %w", previousStatus, ErrColumnNotFound)
			}
		}
		fromIdx := board.Columns[fromCol].TaskIndex(task.ID)
		if fromIdx < 0 {
			return s, fmt.Errorf("update task %q in %q: %w", task.ID, board.Columns[fromCol].Name, ErrNotFound)
		}
		destCol := board.ColumnIndexByName(task.Status)
		if destCol < 0 {
			return s, fmt.Errorf("update task status %q: %w", task.Status, ErrColumnNotFound)
		}
		if destCol == fromCol {
			column := board.Columns[fromCol]
			column.Tasks = replaceTask(column.Tasks, fromIdx, task)
			board = withColumn(board, fromCol, column)
			break
		}
		source := board.Columns[fromCol]
		source.Tasks = removeTask(source.Tasks, fromIdx)
		board = withColumn(board, fromCol, source)
		dest := board.Columns[destCol]
		dest.Tasks = appendTask(dest.Tasks, task)
		board = withColumn(board, destCol, dest)

	default:
		return s, fmt.Errorf("update task: %w: %q", ErrInvalidMode, mode)
	}

	next := s.withBoard(boardIdx, board)
	next.LastViewedTaskID = task.ID
	return next, nil
}

// DeleteTask removes the task with id from whichever active-board column holds it.
func (s State) DeleteTask(id string) (State, error) {
	boardIdx, board, err := s.activeBoardForWrite()
	if err != nil {
		return s, fmt.Errorf("delete task: %w", err)
	}
	colIdx, taskIdx, ok := board.FindTask(id)
	if !ok {
		return s, fmt.Errorf("delete task %q: %w", id, ErrNotFound)
	}
	column := board.Columns[colIdx]
	column.Tasks = removeTask(column.Tasks, taskIdx)
	board = withColumn(board, colIdx, column)
	next := s.withBoard(boardIdx, board)
	if next.LastViewedTaskID == id {
		next.LastViewedTaskID = ""
	}
	return next, nil
}

// MoveTask applies one index-based drag-and-drop gesture to the active board.
//
// A same-column move to the same index returns s unchanged. A same-column move re-inserts the
// task at DestinationIndex. A cross-column move removes the task from the source column, sets its
// status to the destination column name and inserts it at DestinationIndex. Destination indexes
// past the end append.
func (s State) MoveTask(move TaskMove) (State, error) {
	boardIdx, board, err := s.activeBoardForWrite()
	if err != nil {
		return s, fmt.Errorf("move task: %w", err)
	}
	srcCol := board.ColumnIndex(move.SourceColumnID)
	if srcCol < 0 {
		return s, fmt.Errorf("move task: source column %q: %w", move.SourceColumnID, ErrColumnNotFound)
	}
	destCol := board.ColumnIndex(move.DestinationColumnID)
	if destCol < 0 {
		return s, fmt.Errorf("move task: destination column %q: %w", move.DestinationColumnID, ErrColumnNotFound)
	}
	source := board.Columns[srcCol]
	if move.SourceIndex < 0 || move.SourceIndex >= len(source.Tasks) {
		return s, fmt.Errorf("move task: source index %d: %w", move.SourceIndex, domain.ErrInvalidPosition)
	}
	if move.DestinationIndex < 0 {
		return s, fmt.Errorf("move task: destination index %d: %w", move.DestinationIndex, domain.ErrInvalidPosition)
	}
	task := source.Tasks[move.SourceIndex]
	if id := strings.TrimSpace(move.TaskID); id != "" && id != task.ID {
		return s, fmt.Errorf("move task %q at %s[%d]: %w", id, source.Name, move.SourceIndex, ErrTaskMismatch)
	}

	if srcCol == destCol {
		if move.SourceIndex == move.DestinationIndex {
			return s, nil
		}
		dest := min(move.DestinationIndex, len(source.Tasks)-1)
		if dest == move.SourceIndex {
			return s, nil
		}
		source.Tasks = insertTask(removeTask(source.Tasks, move.SourceIndex), dest, task)
		board = withColumn(board, srcCol, source)
		return s.withBoard(boardIdx, board), nil
	}

	destination := board.Columns[destCol]
	task = task.Clone()
	task.Status = destination.Name
	source.Tasks = removeTask(source.Tasks, move.SourceIndex)
	destination.Tasks = insertTask(destination.Tasks, min(move.DestinationIndex, len(destination.Tasks)), task)
	board = withColumn(board, srcCol, source)
	board = withColumn(board, destCol, destination)
	return s.withBoard(boardIdx, board), nil
}

// ViewTask records the task currently opened for viewing.
func (s State) ViewTask(id string) (State, error) {
	board, ok := s.ActiveBoard()
	if !ok {
		return s, fmt.Errorf("view task: %w", ErrNoActiveBoard)
	}
	if _, _, found := board.FindTask(id); !found {
		return s, fmt.Errorf("view task %q: %w", id, ErrNotFound)
	}
	next := s
	next.LastViewedTaskID = id
	return next, nil
}

// ToggleDarkMode flips the theme flag.
func (s State) ToggleDarkMode() State {
	next := s
	next.DarkMode = !s.DarkMode
	return next
}

// ToggleSidePanel flips the side panel flag.
func (s State) ToggleSidePanel() State {
	next := s
	next.SidePanelOpen = !s.SidePanelOpen
	return next
}

// CheckInvariants reports the first structural violation in s.
func (s State) CheckInvariants() error {
	boardIDs := map[string]struct{}{}
	columnIDs := map[string]struct{}{}
	taskIDs := map[string]struct{}{}
	for _, board := range s.Boards {
		if _, dup := boardIDs[board.ID]; dup || strings.TrimSpace(board.ID) == "" {
			return fmt.Errorf("board id %q is empty or repeated: %w", board.ID, ErrInvariantBroken)
		}
		boardIDs[board.ID] = struct{}{}
		for _, column := range board.Columns {
			if _, dup := columnIDs[column.ID]; dup || strings.TrimSpace(column.ID) == "" {
				return fmt.Errorf("column id %q is empty or repeated: %w", column.ID, ErrInvariantBroken)
			}
			columnIDs[column.ID] = struct{}{}
			for _, task := range column.Tasks {
				if _, dup := taskIDs[task.ID]; dup || strings.TrimSpace(task.ID) == "" {
					return fmt.Errorf("task id %q is empty or repeated: %w", task.ID, ErrInvariantBroken)
				}
				taskIDs[task.ID] = struct{}{}
				if task.Status != column.Name {
					return fmt.Errorf("task %q has status %q but lives in column %q: %w", task.ID, task.Status, column.Name, ErrInvariantBroken)
				}
			}
		}
	}
	if s.ActiveBoardID == "" && len(s.Boards) > 0 {
		return fmt.Errorf("boards exist but none is active: %w", ErrInvariantBroken)
	}
	if s.ActiveBoardID != "" {
		if _, ok := boardIDs[s.ActiveBoardID]; !ok {
			return fmt.Errorf("active board %q does not exist: %w", s.ActiveBoardID, ErrInvariantBroken)
		}
	}
	return nil
}

func (s State) boardIndex(id string) int {
	if id == "" {
		return -1
	}
	for idx, board := range s.Boards {
		if board.ID == id {
			return idx
		}
	}
	return -1
}

func (s State) activeBoardForWrite() (int, domain.Board, error) {
	idx := s.boardIndex(s.ActiveBoardID)
	if idx < 0 {
		return -1, domain.Board{}, ErrNoActiveBoard
	}
	return idx, s.Boards[idx], nil
}

// withBoard returns a copy of s with the board at idx replaced.
func (s State) withBoard(idx int, board domain.Board) State {
	next := s
	next.Boards = make([]domain.Board, len(s.Boards))
	copy(next.Boards, s.Boards)
	next.Boards[idx] = board
	return next
}

// withColumn returns a copy of board with the column at idx replaced.
func withColumn(board domain.Board, idx int, column domain.Column) domain.Board {
	columns := make([]domain.Column, len(board.Columns))
	copy(columns, board.Columns)
	columns[idx] = column
	board.Columns = columns
	return board
}

func appendTask(tasks []domain.Task, task domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)+1)
	out = append(out, tasks...)
	return append(out, task)
}

func insertTask(tasks []domain.Task, idx int, task domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)+1)
	out = append(out, tasks[:idx]...)
	out = append(out, task)
	return append(out, tasks[idx:]...)
}

func removeTask(tasks []domain.Task, idx int) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)-1)
	out = append(out, tasks[:idx]...)
	return append(out, tasks[idx+1:]...)
}

func replaceTask(tasks []domain.Task, idx int, task domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	out[idx] = task
	return out
}
