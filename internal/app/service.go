package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// InitialDarkMode and InitialSidePanelOpen apply only when no persisted state exists.
	InitialDarkMode      bool
	InitialSidePanelOpen bool
	// Seed initializes the board list once when no persisted state exists.
	Seed []domain.Board
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the current board State. Every mutation runs validation, applies one State
// transition, persists it when a repository is configured, and signals subscribers.
type Service struct {
	repo   Repository
	idGen  IDGenerator
	clock  Clock
	cfg    ServiceConfig
	broker *changeBroker

	mu    sync.Mutex
	state State
}

// NewService wires the store. repo may be nil for a session-only store.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = sequentialIDs()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:   repo,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		broker: newChangeBroker(),
		state: State{
			DarkMode:      cfg.InitialDarkMode,
			SidePanelOpen: cfg.InitialSidePanelOpen,
		},
	}
}

// CreateBoardInput holds input values for create board operations.
type CreateBoardInput struct {
	Name    string
	Columns []string
}

// ColumnInput describes one desired column. An empty ID creates a new column.
type ColumnInput struct {
	ID   string
	Name string
}

// UpdateBoardInput holds input values for update board operations. Columns is the complete
// desired column list in display order.
type UpdateBoardInput struct {
	BoardID string
	Name    string
	Columns []ColumnInput
}

// SubtaskInput describes one checklist item. An empty ID creates a new subtask.
type SubtaskInput struct {
	ID        string
	Name      string
	Completed bool
}

// CreateTaskInput holds input values for create task operations. An empty Status selects the
// first column of the active board.
type CreateTaskInput struct {
	Name        string
	Description string
	Status      string
	Subtasks    []SubtaskInput
}

// UpdateTaskInput holds input values for update task operations. Empty Name and Status keep the
// current values; nil Description and Subtasks keep the current values.
type UpdateTaskInput struct {
	TaskID         string
	Mode           UpdateMode
	Name           string
	Description    *string
	Status         string
	PreviousStatus string
	Subtasks       []SubtaskInput
}

// Load restores persisted state, or seeds a fresh state when nothing was persisted.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		state, err := s.repo.LoadState(ctx)
		switch {
		case err == nil:
			s.state = state
			s.broker.notify()
			return nil
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("load state: %w", err)
		}
	}

	initial := State{
		DarkMode:      s.cfg.InitialDarkMode,
		SidePanelOpen: s.cfg.InitialSidePanelOpen,
	}
	initial = initial.InitializeBoards(s.cfg.Seed)
	return s.commitLocked(ctx, initial, domain.ChangeEvent{
		Operation: domain.ChangeOperationInitialize,
		Metadata:  map[string]string{"boards": strconv.Itoa(len(initial.Boards))},
	})
}

// Current returns a deep copy of the committed state.
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel signalled after every committed transition and a cancel func.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	ch := s.broker.subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() { s.broker.unsubscribe(ch) })
	}
}

// ListBoards returns all boards in display order.
func (s *Service) ListBoards(_ context.Context) []domain.Board {
	return s.Current().Boards
}

// GetBoard returns one board by id.
func (s *Service) GetBoard(_ context.Context, boardID string) (domain.Board, error) {
	board, ok := s.Current().Board(strings.TrimSpace(boardID))
	if !ok {
		return domain.Board{}, fmt.Errorf("get board %q: %w", boardID, ErrNotFound)
	}
	return board, nil
}

// GetTask returns one task by id from any board.
func (s *Service) GetTask(_ context.Context, taskID string) (domain.Task, error) {
	task, _, ok := s.Current().Task(strings.TrimSpace(taskID))
	if !ok {
		return domain.Task{}, fmt.Errorf("get task %q: %w", taskID, ErrNotFound)
	}
	return task, nil
}

// InitializeBoards replaces the board list wholesale. It refuses to overwrite existing boards
// unless force is set.
func (s *Service) InitializeBoards(ctx context.Context, boards []domain.Board, force bool) error {
	_, err := s.apply(ctx, domain.ChangeEvent{
		Operation: domain.ChangeOperationInitialize,
		Metadata:  map[string]string{"boards": strconv.Itoa(len(boards))},
	}, func(cur State) (State, error) {
		if len(cur.Boards) > 0 && !force {
			return cur, fmt.Errorf("initialize boards: %w", ErrStateNotEmpty)
		}
		next := cur.InitializeBoards(boards)
		if err := next.CheckInvariants(); err != nil {
			return cur, fmt.Errorf("initialize boards: %w", err)
		}
		return next, nil
	})
	return err
}

// CreateBoard creates board.
func (s *Service) CreateBoard(ctx context.Context, in CreateBoardInput) (domain.Board, error) {
	now := s.clock()
	columns := make([]ColumnInput, 0, len(in.Columns))
	for _, name := range in.Columns {
		columns = append(columns, ColumnInput{Name: name})
	}

	var created domain.Board
	_, err := s.apply(ctx, domain.ChangeEvent{Operation: domain.ChangeOperationCreateBoard}, func(cur State) (State, error) {
		if err := validateBoardNames(cur, "", in.Name, columns); err != nil {
			return cur, err
		}
		builtColumns, err := s.buildColumns(domain.Board{}, columns)
		if err != nil {
			return cur, err
		}
		board, err := domain.NewBoard(s.idGen(), in.Name, builtColumns, now)
		if err != nil {
			return cur, err
		}
		created = board
		return cur.CreateBoard(board), nil
	})
	if err != nil {
		return domain.Board{}, err
	}
	return created.Clone(), nil
}

// UpdateBoard renames a board and replaces its column list.
func (s *Service) UpdateBoard(ctx context.Context, in UpdateBoardInput) (domain.Board, error) {
	now := s.clock()
	boardID := strings.TrimSpace(in.BoardID)

	var updated domain.Board
	_, err := s.apply(ctx, domain.ChangeEvent{BoardID: boardID, Operation: domain.ChangeOperationUpdateBoard}, func(cur State) (State, error) {
		current, ok := cur.Board(boardID)
		if !ok {
			return cur, fmt.Errorf("update board %q: %w", boardID, ErrNotFound)
		}
		if err := validateBoardNames(cur, boardID, in.Name, in.Columns); err != nil {
			return cur, err
		}
		columns, err := s.buildColumns(current, in.Columns)
		if err != nil {
			return cur, err
		}
		board := current.Clone()
		if err := board.Rename(in.Name, now); err != nil {
			return cur, err
		}
		board.Columns = columns
		updated = board
		return cur.UpdateBoard(board)
	})
	if err != nil {
		return domain.Board{}, err
	}
	return updated.Clone(), nil
}

// DeleteBoard deletes board.
func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	boardID = strings.TrimSpace(boardID)
	_, err := s.apply(ctx, domain.ChangeEvent{BoardID: boardID, Operation: domain.ChangeOperationDeleteBoard}, func(cur State) (State, error) {
		return cur.DeleteBoard(boardID)
	})
	return err
}

// ChangeActiveBoard activates one board.
func (s *Service) ChangeActiveBoard(ctx context.Context, boardID string) (domain.Board, error) {
	boardID = strings.TrimSpace(boardID)
	next, err := s.apply(ctx, domain.ChangeEvent{BoardID: boardID, Operation: domain.ChangeOperationActivateBoard}, func(cur State) (State, error) {
		return cur.ChangeActiveBoard(boardID)
	})
	if err != nil {
		return domain.Board{}, err
	}
	board, _ := next.ActiveBoard()
	return board.Clone(), nil
}

// CreateTask creates a task in the active board.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	now := s.clock()
	if err := validateTaskNames(in.Name, in.Subtasks); err != nil {
		return domain.Task{}, err
	}

	var created domain.Task
	_, err := s.apply(ctx, domain.ChangeEvent{Operation: domain.ChangeOperationCreateTask}, func(cur State) (State, error) {
		board, ok := cur.ActiveBoard()
		if !ok {
			return cur, fmt.Errorf("create task: %w", ErrNoActiveBoard)
		}
		status := strings.TrimSpace(in.Status)
		if status == "" && len(board.Columns) > 0 {
			status = board.Columns[0].Name
		}
		task, err := domain.NewTask(domain.TaskInput{
			ID:          s.idGen(),
			Name:        in.Name,
			Description: in.Description,
			Status:      status,
			Subtasks:    s.buildSubtasks(nil, in.Subtasks),
		}, now)
		if err != nil {
			return cur, err
		}
		created = task
		return cur.CreateTask(task)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return created.Clone(), nil
}

// UpdateTask updates one active-board task using the requested placement mode.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	now := s.clock()
	taskID := strings.TrimSpace(in.TaskID)
	mode, err := ParseUpdateMode(string(in.Mode))
	if err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(in.Name) != "" {
		if err := domain.ValidateName(domain.NameKindTask, in.Name); err != nil {
			return domain.Task{}, err
		}
	}
	if err := validateSubtaskNames(in.Subtasks); err != nil {
		return domain.Task{}, err
	}

	var updated domain.Task
	_, err = s.apply(ctx, domain.ChangeEvent{
		TaskID:    taskID,
		Operation: domain.ChangeOperationUpdateTask,
		Metadata:  map[string]string{"mode": string(mode)},
	}, func(cur State) (State, error) {
		board, ok := cur.ActiveBoard()
		if !ok {
			return cur, fmt.Errorf("update task: %w", ErrNoActiveBoard)
		}
		colIdx, taskIdx, found := board.FindTask(taskID)
		if !found {
			return cur, fmt.Errorf("update task %q: %w", taskID, ErrNotFound)
		}
		task := board.Columns[colIdx].Tasks[taskIdx].Clone()

		name := firstNonEmpty(in.Name, task.Name)
		description := task.Description
		if in.Description != nil {
			description = *in.Description
		}
		status := firstNonEmpty(in.Status, task.Status)
		subtasks := task.Subtasks
		if in.Subtasks != nil {
			subtasks = s.buildSubtasks(task.Subtasks, in.Subtasks)
		}
		if err := task.UpdateDetails(name, description, status, subtasks, now); err != nil {
			return cur, err
		}
		updated = task
		return cur.UpdateTask(task, mode, in.PreviousStatus)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return s.committedTask(updated.ID, updated), nil
}

// SetTaskStatus moves a task to the end of the column named status.
func (s *Service) SetTaskStatus(ctx context.Context, taskID, status string) (domain.Task, error) {
	return s.UpdateTask(ctx, UpdateTaskInput{
		TaskID: taskID,
		Mode:   UpdateModeStatus,
		Status: strings.TrimSpace(status),
	})
}

// ToggleSubtask flips one subtask and writes the task back in place.
func (s *Service) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (domain.Task, error) {
	now := s.clock()
	taskID = strings.TrimSpace(taskID)
	subtaskID = strings.TrimSpace(subtaskID)

	var updated domain.Task
	_, err := s.apply(ctx, domain.ChangeEvent{
		TaskID:    taskID,
		Operation: domain.ChangeOperationUpdateTask,
		Metadata:  map[string]string{"mode": string(UpdateModeChecklist), "subtask_id": subtaskID},
	}, func(cur State) (State, error) {
		board, ok := cur.ActiveBoard()
		if !ok {
			return cur, fmt.Errorf("toggle subtask: %w", ErrNoActiveBoard)
		}
		colIdx, taskIdx, found := board.FindTask(taskID)
		if !found {
			return cur, fmt.Errorf("toggle subtask: task %q: %w", taskID, ErrNotFound)
		}
		task := board.Columns[colIdx].Tasks[taskIdx].Clone()
		if !task.ToggleSubtask(subtaskID, now) {
			return cur, fmt.Errorf("toggle subtask %q: %w", subtaskID, ErrNotFound)
		}
		updated = task
		return cur.UpdateTask(task, UpdateModeChecklist, "")
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated.Clone(), nil
}

// ViewTask records the task opened for viewing and returns it.
func (s *Service) ViewTask(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	next, err := s.apply(ctx, domain.ChangeEvent{TaskID: taskID, Operation: domain.ChangeOperationViewTask}, func(cur State) (State, error) {
		return cur.ViewTask(taskID)
	})
	if err != nil {
		return domain.Task{}, err
	}
	task, _, _ := next.Task(taskID)
	return task.Clone(), nil
}

// DeleteTask deletes task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	_, err := s.apply(ctx, domain.ChangeEvent{TaskID: taskID, Operation: domain.ChangeOperationDeleteTask}, func(cur State) (State, error) {
		return cur.DeleteTask(taskID)
	})
	return err
}

// MoveTask applies one drag-and-drop gesture and returns the moved task.
func (s *Service) MoveTask(ctx context.Context, move TaskMove) (domain.Task, error) {
	event := domain.ChangeEvent{
		TaskID:    strings.TrimSpace(move.TaskID),
		Operation: domain.ChangeOperationMoveTask,
		Metadata: map[string]string{
			"source_column_id":      move.SourceColumnID,
			"destination_column_id": move.DestinationColumnID,
			"source_index":          strconv.Itoa(move.SourceIndex),
			"destination_index":     strconv.Itoa(move.DestinationIndex),
		},
	}

	var movedID string
	next, err := s.apply(ctx, event, func(cur State) (State, error) {
		board, ok := cur.ActiveBoard()
		if !ok {
			return cur, fmt.Errorf("move task: %w", ErrNoActiveBoard)
		}
		if colIdx := board.ColumnIndex(move.SourceColumnID); colIdx >= 0 {
			if tasks := board.Columns[colIdx].Tasks; move.SourceIndex >= 0 && move.SourceIndex < len(tasks) {
				movedID = tasks[move.SourceIndex].ID
			}
		}
		return cur.MoveTask(move)
	})
	if err != nil {
		return domain.Task{}, err
	}
	task, _, _ := next.Task(movedID)
	return task.Clone(), nil
}

// ToggleDarkMode flips the theme flag and returns the new value.
func (s *Service) ToggleDarkMode(ctx context.Context) (bool, error) {
	next, err := s.apply(ctx, domain.ChangeEvent{Operation: domain.ChangeOperationToggleDarkMode}, func(cur State) (State, error) {
		return cur.ToggleDarkMode(), nil
	})
	if err != nil {
		return false, err
	}
	return next.DarkMode, nil
}

// ToggleSidePanel flips the side panel flag and returns the new value.
func (s *Service) ToggleSidePanel(ctx context.Context) (bool, error) {
	next, err := s.apply(ctx, domain.ChangeEvent{Operation: domain.ChangeOperationToggleSidePanel}, func(cur State) (State, error) {
		return cur.ToggleSidePanel(), nil
	})
	if err != nil {
		return false, err
	}
	return next.SidePanelOpen, nil
}

// ListChangeEvents returns the most recent persisted change events, newest first.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if s.repo == nil {
		return []domain.ChangeEvent{}, nil
	}
	return s.repo.ListChangeEvents(ctx, limit)
}

// apply runs fn against the committed state under the service lock and commits its result.
func (s *Service) apply(ctx context.Context, event domain.ChangeEvent, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state)
	if err != nil {
		return s.state, s.explainTaskMiss(event.TaskID, err)
	}
	if err := next.CheckInvariants(); err != nil {
		return s.state, fmt.Errorf("%s: %w", event.Operation, err)
	}
	if err := s.commitLocked(ctx, next, event); err != nil {
		return s.state, err
	}
	return next, nil
}

// explainTaskMiss turns a lookup miss for a task that exists on an inactive board into
// ErrTaskNotOnActiveBoard. The caller holds s.mu.
func (s *Service) explainTaskMiss(taskID string, err error) error {
	if taskID == "" || !(errors.Is(err, ErrNotFound) || errors.Is(err, ErrColumnNotFound)) {
		return err
	}
	_, boardID, ok := s.state.Task(taskID)
	if !ok || boardID == s.state.ActiveBoardID {
		return err
	}
	return fmt.Errorf("task %q is on board %q: %w", taskID, boardID, ErrTaskNotOnActiveBoard)
}

// commitLocked persists next and makes it current. The caller holds s.mu.
func (s *Service) commitLocked(ctx context.Context, next State, event domain.ChangeEvent) error {
	if event.BoardID == "" {
		event.BoardID = next.ActiveBoardID
	}
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}
	event.OccurredAt = s.clock().UTC()
	if s.repo != nil {
		if err := s.repo.SaveState(ctx, next, event); err != nil {
			return fmt.Errorf("persist %s: %w", event.Operation, err)
		}
	}
	s.state = next
	s.broker.notify()
	return nil
}

// committedTask returns the committed copy of a task, falling back to fallback.
func (s *Service) committedTask(taskID string, fallback domain.Task) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, _, ok := s.state.Task(taskID); ok {
		return task.Clone()
	}
	return fallback.Clone()
}

// buildColumns resolves desired columns against the current board. Columns carrying a known ID
// keep their tasks and are renamed in place.
func (s *Service) buildColumns(current domain.Board, inputs []ColumnInput) ([]domain.Column, error) {
	out := make([]domain.Column, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ID)
		if id != "" {
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("column %q listed twice: %w", id, domain.ErrInvalidID)
			}
			seen[id] = struct{}{}
			idx := current.ColumnIndex(id)
			if idx < 0 {
				return nil, fmt.Errorf("column %q: %w", id, ErrColumnNotFound)
			}
			column, err := current.Columns[idx].Renamed(in.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, column)
			continue
		}
		column, err := domain.NewColumn(s.idGen(), in.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, column)
	}
	return out, nil
}

// buildSubtasks resolves subtask inputs, keeping IDs of known subtasks.
func (s *Service) buildSubtasks(current []domain.Subtask, inputs []SubtaskInput) []domain.Subtask {
	known := make(map[string]struct{}, len(current))
	for _, subtask := range current {
		known[subtask.ID] = struct{}{}
	}
	out := make([]domain.Subtask, 0, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ID)
		if _, ok := known[id]; !ok || id == "" {
			id = s.idGen()
		}
		delete(known, id)
		out = append(out, domain.Subtask{
			ID:        id,
			Name:      strings.TrimSpace(in.Name),
			Completed: in.Completed,
		})
	}
	return out
}

// validateBoardNames applies the board form rules, excluding selfID from uniqueness checks.
func validateBoardNames(cur State, selfID, name string, columns []ColumnInput) error {
	if err := domain.ValidateName(domain.NameKindBoard, name); err != nil {
		return err
	}
	names := make([]string, 0, len(cur.Boards)+1)
	for _, board := range cur.Boards {
		if board.ID != selfID {
			names = append(names, board.Name)
		}
	}
	names = append(names, name)
	if err := domain.ValidateUniqueNames(domain.NameKindBoard, names); err != nil {
		return err
	}

	columnNames := make([]string, 0, len(columns))
	for _, column := range columns {
		if err := domain.ValidateName(domain.NameKindColumn, column.Name); err != nil {
			return err
		}
		columnNames = append(columnNames, column.Name)
	}
	return domain.ValidateUniqueNames(domain.NameKindColumn, columnNames)
}

// validateTaskNames applies the task form rules.
func validateTaskNames(name string, subtasks []SubtaskInput) error {
	if err := domain.ValidateName(domain.NameKindTask, name); err != nil {
		return err
	}
	return validateSubtaskNames(subtasks)
}

// validateSubtaskNames rejects blank checklist items.
func validateSubtaskNames(subtasks []SubtaskInput) error {
	for _, subtask := range subtasks {
		if err := domain.ValidateName(domain.NameKindSubtask, subtask.Name); err != nil {
			return err
		}
	}
	return nil
}

// firstNonEmpty returns the first trimmed non-empty value.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// sequentialIDs returns a deterministic fallback generator.
func sequentialIDs() IDGenerator {
	var (
		mu   sync.Mutex
		next int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return "id-" + strconv.Itoa(next)
	}
}
