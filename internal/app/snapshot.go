package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// SnapshotVersion is the only snapshot format ImportSnapshot accepts.
const SnapshotVersion = "tavla.snapshot.v1"

// Snapshot is the portable JSON form of the whole store, IDs included.
type Snapshot struct {
	Version          string          `json:"version"`
	ExportedAt       time.Time       `json:"exported_at"`
	ActiveBoardID    string          `json:"active_board_id"`
	LastViewedTaskID string          `json:"last_viewed_task_id,omitempty"`
	DarkMode         bool            `json:"dark_mode"`
	SidePanelOpen    bool            `json:"side_panel_open"`
	Boards           []SnapshotBoard `json:"boards"`
}

// SnapshotBoard is one exported board.
type SnapshotBoard struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Columns   []SnapshotColumn `json:"columns"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SnapshotColumn lists its tasks in display order.
type SnapshotColumn struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Tasks []SnapshotTask `json:"tasks"`
}

// SnapshotTask carries its column through Status.
type SnapshotTask struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Subtasks    []SnapshotSubtask `json:"subtasks"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SnapshotSubtask keeps the isCompleted field name of the seed format.
type SnapshotSubtask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"isCompleted"`
}

// SnapshotFromState converts state into its portable form.
func SnapshotFromState(state State, exportedAt time.Time) Snapshot {
	snap := Snapshot{
		Version:          SnapshotVersion,
		ExportedAt:       exportedAt.UTC(),
		ActiveBoardID:    state.ActiveBoardID,
		LastViewedTaskID: state.LastViewedTaskID,
		DarkMode:         state.DarkMode,
		SidePanelOpen:    state.SidePanelOpen,
		Boards:           make([]SnapshotBoard, 0, len(state.Boards)),
	}
	for _, board := range state.Boards {
		snap.Boards = append(snap.Boards, snapshotBoardFromDomain(board))
	}
	return snap
}

// State converts the snapshot back into a State. Call Validate first.
func (s Snapshot) State() State {
	state := State{
		ActiveBoardID:    s.ActiveBoardID,
		LastViewedTaskID: s.LastViewedTaskID,
		DarkMode:         s.DarkMode,
		SidePanelOpen:    s.SidePanelOpen,
		Boards:           make([]domain.Board, 0, len(s.Boards)),
	}
	for _, board := range s.Boards {
		state.Boards = append(state.Boards, board.toDomain())
	}
	if state.ActiveBoardID == "" && len(state.Boards) > 0 {
		state.ActiveBoardID = state.Boards[0].ID
	}
	if _, _, ok := state.Task(state.LastViewedTaskID); !ok {
		state.LastViewedTaskID = ""
	}
	return state
}

// Validate checks version, ids and names before anything is written.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q: %w", s.Version, ErrInvalidSnapshot)
	}

	ids := map[string]string{}
	claim := func(path, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%s.id is required: %w", path, ErrInvalidSnapshot)
		}
		if prev, exists := ids[id]; exists {
			return fmt.Errorf("%s.id %q duplicates %s: %w", path, id, prev, ErrInvalidSnapshot)
		}
		ids[id] = path
		return nil
	}

	boardNames := make([]string, 0, len(s.Boards))
	for i, board := range s.Boards {
		path := "boards[" + strconv.Itoa(i) + "]"
		if err := claim(path, board.ID); err != nil {
			return err
		}
		if strings.TrimSpace(board.Name) == "" {
			return fmt.Errorf("%s.name is required: %w", path, ErrInvalidSnapshot)
		}
		boardNames = append(boardNames, board.Name)

		columnNames := make([]string, 0, len(board.Columns))
		for j, column := range board.Columns {
			colPath := path + ".columns[" + strconv.Itoa(j) + "]"
			if err := claim(colPath, column.ID); err != nil {
				return err
			}
			if strings.TrimSpace(column.Name) == "" {
				return fmt.Errorf("%s.name is required: %w", colPath, ErrInvalidSnapshot)
			}
			columnNames = append(columnNames, column.Name)

			for k, task := range column.Tasks {
				taskPath := colPath + ".tasks[" + strconv.Itoa(k) + "]"
				if err := claim(taskPath, task.ID); err != nil {
					return err
				}
				if strings.TrimSpace(task.Name) == "" {
					return fmt.Errorf("%s.name is required: %w", taskPath, ErrInvalidSnapshot)
				}
				if task.Status != column.Name {
					return fmt.Errorf("%s.status %q does not match column %q: %w", taskPath, task.Status, column.Name, ErrInvalidSnapshot)
				}
				for m, subtask := range task.Subtasks {
					subPath := taskPath + ".subtasks[" + strconv.Itoa(m) + "]"
					if err := claim(subPath, subtask.ID); err != nil {
						return err
					}
					if strings.TrimSpace(subtask.Name) == "" {
						return fmt.Errorf("%s.name is required: %w", subPath, ErrInvalidSnapshot)
					}
				}
			}
		}
		if err := domain.ValidateUniqueNames(domain.NameKindColumn, columnNames); err != nil {
			return fmt.Errorf("%s: %w: %w", path, ErrInvalidSnapshot, err)
		}
	}
	if err := domain.ValidateUniqueNames(domain.NameKindBoard, boardNames); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if s.ActiveBoardID != "" {
		found := false
		for _, board := range s.Boards {
			if board.ID == s.ActiveBoardID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("active_board_id %q references unknown board: %w", s.ActiveBoardID, ErrInvalidSnapshot)
		}
	}
	return nil
}

// ExportSnapshot returns the committed state in portable form.
func (s *Service) ExportSnapshot(_ context.Context) Snapshot {
	return SnapshotFromState(s.Current(), s.clock())
}

// ImportSnapshot validates snap and replaces the whole store with it.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	next := snap.State()
	if err := next.CheckInvariants(); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	_, err := s.apply(ctx, domain.ChangeEvent{
		Operation: domain.ChangeOperationImport,
		Metadata: map[string]string{
			"boards":  strconv.Itoa(len(next.Boards)),
			"version": SnapshotVersion,
		},
	}, func(State) (State, error) {
		return next, nil
	})
	return err
}

func snapshotBoardFromDomain(b domain.Board) SnapshotBoard {
	out := SnapshotBoard{
		ID:        b.ID,
		Name:      b.Name,
		Columns:   make([]SnapshotColumn, 0, len(b.Columns)),
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
	for _, column := range b.Columns {
		sc := SnapshotColumn{
			ID:    column.ID,
			Name:  column.Name,
			Tasks: make([]SnapshotTask, 0, len(column.Tasks)),
		}
		for _, task := range column.Tasks {
			sc.Tasks = append(sc.Tasks, snapshotTaskFromDomain(task))
		}
		out.Columns = append(out.Columns, sc)
	}
	return out
}

func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	out := SnapshotTask{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		Subtasks:    make([]SnapshotSubtask, 0, len(t.Subtasks)),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	for _, subtask := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, SnapshotSubtask{
			ID:          subtask.ID,
			Name:        subtask.Name,
			IsCompleted: subtask.Completed,
		})
	}
	return out
}

func (b SnapshotBoard) toDomain() domain.Board {
	out := domain.Board{
		ID:        strings.TrimSpace(b.ID),
		Name:      strings.TrimSpace(b.Name),
		Columns:   make([]domain.Column, 0, len(b.Columns)),
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
	for _, column := range b.Columns {
		dc := domain.Column{
			ID:    strings.TrimSpace(column.ID),
			Name:  strings.TrimSpace(column.Name),
			Tasks: make([]domain.Task, 0, len(column.Tasks)),
		}
		for _, task := range column.Tasks {
			dc.Tasks = append(dc.Tasks, task.toDomain(dc.Name))
		}
		out.Columns = append(out.Columns, dc)
	}
	return out
}

func (t SnapshotTask) toDomain(status string) domain.Task {
	out := domain.Task{
		ID:          strings.TrimSpace(t.ID),
		Name:        strings.TrimSpace(t.Name),
		Description: t.Description,
		Status:      status,
		Subtasks:    make([]domain.Subtask, 0, len(t.Subtasks)),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	for _, subtask := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, domain.Subtask{
			ID:        strings.TrimSpace(subtask.ID),
			Name:      strings.TrimSpace(subtask.Name),
			Completed: subtask.IsCompleted,
		})
	}
	return out
}
