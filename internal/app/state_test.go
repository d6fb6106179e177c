package app

import (
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

var stateTestNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// boardFixture builds a board from column name -> task names, using readable IDs.
func boardFixture(t *testing.T, boardID, name string, columns ...columnFixture) domain.Board {
	t.Helper()
	cols := make([]domain.Column, 0, len(columns))
	for _, def := range columns {
		column, err := domain.NewColumn(boardID+"-"+def.name, def.name)
		if err != nil {
			t.Fatalf("NewColumn() error = %v", err)
		}
		for _, taskID := range def.tasks {
			task, err := domain.NewTask(domain.TaskInput{
				ID:     taskID,
				Name:   "Task " + taskID,
				Status: def.name,
				Subtasks: []domain.Subtask{
					{ID: taskID + "-s1", Name: "first"},
					{ID: taskID + "-s2", Name: "second"},
				},
			}, stateTestNow)
			if err != nil {
				t.Fatalf("NewTask() error = %v", err)
			}
			column.Tasks = append(column.Tasks, task)
		}
		cols = append(cols, column)
	}
	board, err := domain.NewBoard(boardID, name, cols, stateTestNow)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	return board
}

type columnFixture struct {
	name  string
	tasks []string
}

func col(name string, tasks ...string) columnFixture {
	return columnFixture{name: name, tasks: tasks}
}

func taskIDs(t *testing.T, s State, columnName string) []string {
	t.Helper()
	board, ok := s.ActiveBoard()
	if !ok {
		t.Fatalf("expected an active board")
	}
	idx := board.ColumnIndexByName(columnName)
	if idx < 0 {
		t.Fatalf("column %q not found", columnName)
	}
	out := []string{}
	for _, task := range board.Columns[idx].Tasks {
		out = append(out, task.ID)
	}
	return out
}

func mustInvariants(t *testing.T, s State) {
	t.Helper()
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}
}

func TestCreateTaskAppendsToStatusColumn(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "web", "Web Design", col("Todo"), col("Doing")),
	})
	task, err := domain.NewTask(domain.TaskInput{ID: "logo", Name: "Design logo", Status: "Todo"}, stateTestNow)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}

	next, err := s.CreateTask(task)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"logo"}) {
		t.Fatalf("expected Todo = [logo], got %v", got)
	}
	if got := taskIDs(t, s, "Todo"); len(got) != 0 {
		t.Fatalf("expected original state untouched, got %v", got)
	}
	mustInvariants(t, next)
}

func TestCreateTaskUnknownStatus(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{boardFixture(t, "b", "Board", col("Todo"))})
	task, _ := domain.NewTask(domain.TaskInput{ID: "x", Name: "x", Status: "Nope"}, stateTestNow)
	if _, err := s.CreateTask(task); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
	if _, err := (State{}).CreateTask(task); !errors.Is(err, ErrNoActiveBoard) {
		t.Fatalf("expected ErrNoActiveBoard, got %v", err)
	}
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2"), col("Doing")),
	})

	next, err := s.MoveTask(TaskMove{
		TaskID:              "t1",
		SourceColumnID:      "b-Todo",
		DestinationColumnID: "b-Doing",
		SourceIndex:         0,
		DestinationIndex:    0,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Fatalf("expected Todo = [t2], got %v", got)
	}
	if got := taskIDs(t, next, "Doing"); !reflect.DeepEqual(got, []string{"t1"}) {
		t.Fatalf("expected Doing = [t1], got %v", got)
	}
	moved, _, _ := next.Task("t1")
	if moved.Status != "Doing" {
		t.Fatalf("expected moved status Doing, got %q", moved.Status)
	}
	original, _, _ := s.Task("t1")
	if original.Status != "Todo" {
		t.Fatalf("expected original task untouched, got %q", original.Status)
	}
	mustInvariants(t, next)
}

func TestMoveTaskWithinColumn(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2", "t3", "t4")),
	})
	cases := []struct {
		name string
		src  int
		dst  int
		want []string
	}{
		{name: "down", src: 0, dst: 2, want: []string{"t2", "t3", "t1", "t4"}},
		{name: "up", src: 3, dst: 1, want: []string{"t1", "t4", "t2", "t3"}},
		{name: "to end", src: 1, dst: 3, want: []string{"t1", "t3", "t4", "t2"}},
		{name: "past end clamps", src: 0, dst: 99, want: []string{"t2", "t3", "t4", "t1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := s.MoveTask(TaskMove{
				SourceColumnID:      "b-Todo",
				DestinationColumnID: "b-Todo",
				SourceIndex:         tc.src,
				DestinationIndex:    tc.dst,
			})
			if err != nil {
				t.Fatalf("MoveTask() error = %v", err)
			}
			if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMoveTaskSameSlotIsNoop(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2")),
	})
	next, err := s.MoveTask(TaskMove{
		TaskID:              "t2",
		SourceColumnID:      "b-Todo",
		DestinationColumnID: "b-Todo",
		SourceIndex:         1,
		DestinationIndex:    1,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if &next.Boards[0] != &s.Boards[0] {
		t.Fatalf("expected board slice to be reference-unchanged")
	}
	if !reflect.DeepEqual(next, s) {
		t.Fatalf("expected state unchanged")
	}
}

func TestMoveTaskRoundTrip(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("A", "a1", "a2", "a3"), col("B", "b1", "b2", "b3")),
	})

	there, err := s.MoveTask(TaskMove{SourceColumnID: "b-A", DestinationColumnID: "b-B", SourceIndex: 0, DestinationIndex: 2})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if got := taskIDs(t, there, "B"); !reflect.DeepEqual(got, []string{"b1", "b2", "a1", "b3"}) {
		t.Fatalf("unexpected B after first move: %v", got)
	}
	back, err := there.MoveTask(TaskMove{SourceColumnID: "b-B", DestinationColumnID: "b-A", SourceIndex: 2, DestinationIndex: 0})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if !reflect.DeepEqual(back.Boards, s.Boards) {
		t.Fatalf("expected round trip to restore columns\nwant %+v\ngot  %+v", s.Boards, back.Boards)
	}
}

func TestMoveTaskErrors(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1"), col("Doing")),
	})
	cases := []struct {
		name string
		move TaskMove
		want error
	}{
		{name: "unknown source", move: TaskMove{SourceColumnID: "nope", DestinationColumnID: "b-Doing"}, want: ErrColumnNotFound},
		{name: "unknown destination", move: TaskMove{SourceColumnID: "b-Todo", DestinationColumnID: "nope"}, want: ErrColumnNotFound},
		{name: "source index out of range", move: TaskMove{SourceColumnID: "b-Todo", DestinationColumnID: "b-Doing", SourceIndex: 5}, want: domain.ErrInvalidPosition},
		{name: "negative destination", move: TaskMove{SourceColumnID: "b-Todo", DestinationColumnID: "b-Doing", DestinationIndex: -1}, want: domain.ErrInvalidPosition},
		{name: "task mismatch", move: TaskMove{TaskID: "other", SourceColumnID: "b-Todo", DestinationColumnID: "b-Doing"}, want: ErrTaskMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := s.MoveTask(tc.move)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !reflect.DeepEqual(next, s) {
				t.Fatalf("expected state unchanged on error")
			}
		})
	}
}

func TestUpdateTaskChecklistKeepsPosition(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2", "t3")),
	})
	task, _, _ := s.Task("t2")
	if !task.ToggleSubtask("t2-s1", stateTestNow) {
		t.Fatalf("expected subtask to toggle")
	}

	next, err := s.UpdateTask(task, UpdateModeChecklist, "")
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Fatalf("expected order unchanged, got %v", got)
	}
	updated, _, _ := next.Task("t2")
	if !updated.Subtasks[0].Completed {
		t.Fatalf("expected toggled subtask to be committed")
	}
	before, _, _ := s.Task("t2")
	if before.Subtasks[0].Completed {
		t.Fatalf("expected original subtask untouched")
	}
	if next.LastViewedTaskID != "t2" {
		t.Fatalf("expected last viewed t2, got %q", next.LastViewedTaskID)
	}
}

func TestUpdateTaskStatusAppendsToNewColumn(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2"), col("Done", "d1")),
	})
	task, _, _ := s.Task("t1")
	task.Status = "Done"

	next, err := s.UpdateTask(task, UpdateModeStatus, "")
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Fatalf("unexpected Todo %v", got)
	}
	if got := taskIDs(t, next, "Done"); !reflect.DeepEqual(got, []string{"d1", "t1"}) {
		t.Fatalf("unexpected Done %v", got)
	}
	mustInvariants(t, next)

	task.Status = "Missing"
	if _, err := s.UpdateTask(task, UpdateModeStatus, ""); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestUpdateTaskEditMode(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2"), col("Done", "d1")),
	})

	t.Run("same column keeps position", func(t *testing.T) {
		task, _, _ := s.Task("t1")
		task.Name = "Renamed"
		next, err := s.UpdateTask(task, UpdateModeEdit, "Todo")
		if err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}
		if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
			t.Fatalf("unexpected Todo %v", got)
		}
	})

	t.Run("status change moves", func(t *testing.T) {
		task, _, _ := s.Task("t1")
		task.Status = "Done"
		next, err := s.UpdateTask(task, UpdateModeEdit, "Todo")
		if err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}
		if got := taskIDs(t, next, "Done"); !reflect.DeepEqual(got, []string{"d1", "t1"}) {
			t.Fatalf("unexpected Done %v", got)
		}
		mustInvariants(t, next)
	})

	t.Run("empty previous status uses current column", func(t *testing.T) {
		task, _, _ := s.Task("t2")
		task.Status = "Done"
		next, err := s.UpdateTask(task, UpdateModeEdit, "")
		if err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}
		if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t1"}) {
			t.Fatalf("unexpected Todo %v", got)
		}
	})

	t.Run("stale previous status", func(t *testing.T) {
		task, _, _ := s.Task("t1")
		if _, err := s.UpdateTask(task, UpdateModeEdit, "Done"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		task, _, _ := s.Task("t1")
		if _, err := s.UpdateTask(task, UpdateMode("bogus"), ""); !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("expected ErrInvalidMode, got %v", err)
		}
	})
}

func TestDeleteBoardActiveFallback(t *testing.T) {
	t.Run("only board", func(t *testing.T) {
		s := State{}.InitializeBoards([]domain.Board{boardFixture(t, "web", "Web Design", col("Todo"))})
		next, err := s.DeleteBoard("web")
		if err != nil {
			t.Fatalf("DeleteBoard() error = %v", err)
		}
		if len(next.Boards) != 0 || next.ActiveBoardID != "" {
			t.Fatalf("expected empty state, got %+v", next)
		}
		mustInvariants(t, next)
	})

	t.Run("active board falls back to first", func(t *testing.T) {
		s := State{}.InitializeBoards([]domain.Board{
			boardFixture(t, "a", "A", col("Todo")),
			boardFixture(t, "b", "B", col("Todo")),
			boardFixture(t, "c", "C", col("Todo")),
		})
		s, _ = s.ChangeActiveBoard("b")
		next, err := s.DeleteBoard("b")
		if err != nil {
			t.Fatalf("DeleteBoard() error = %v", err)
		}
		if next.ActiveBoardID != "a" {
			t.Fatalf("expected active a, got %q", next.ActiveBoardID)
		}
	})

	t.Run("inactive board keeps active", func(t *testing.T) {
		s := State{}.InitializeBoards([]domain.Board{
			boardFixture(t, "a", "A", col("Todo")),
			boardFixture(t, "b", "B", col("Todo")),
		})
		next, err := s.DeleteBoard("b")
		if err != nil {
			t.Fatalf("DeleteBoard() error = %v", err)
		}
		if next.ActiveBoardID != "a" || len(next.Boards) != 1 {
			t.Fatalf("unexpected state %+v", next)
		}
	})

	t.Run("missing board", func(t *testing.T) {
		if _, err := (State{}).DeleteBoard("zzz"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBoardLifecycle(t *testing.T) {
	s := State{}.InitializeBoards(nil)
	if s.ActiveBoardID != "" {
		t.Fatalf("expected no active board for empty seed")
	}

	s = s.CreateBoard(boardFixture(t, "a", "A", col("Todo")))
	s = s.CreateBoard(boardFixture(t, "b", "B", col("Todo")))
	if s.ActiveBoardID != "b" {
		t.Fatalf("expected created board active, got %q", s.ActiveBoardID)
	}

	renamed := boardFixture(t, "a", "Alpha", col("Todo"), col("Done"))
	next, err := s.UpdateBoard(renamed)
	if err != nil {
		t.Fatalf("UpdateBoard() error = %v", err)
	}
	if next.ActiveBoardID != "a" || next.Boards[0].Name != "Alpha" {
		t.Fatalf("unexpected update result %+v", next)
	}
	if s.Boards[0].Name != "A" {
		t.Fatalf("expected original board untouched")
	}
	if _, err := s.UpdateBoard(boardFixture(t, "zz", "Z")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ChangeActiveBoard("zz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewAndDeleteTask(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2")),
	})
	viewed, err := s.ViewTask("t1")
	if err != nil {
		t.Fatalf("ViewTask() error = %v", err)
	}
	if viewed.LastViewedTaskID != "t1" {
		t.Fatalf("expected t1 viewed")
	}
	next, err := viewed.DeleteTask("t1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if next.LastViewedTaskID != "" {
		t.Fatalf("expected viewed task cleared")
	}
	if got := taskIDs(t, next, "Todo"); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Fatalf("unexpected Todo %v", got)
	}
	if _, err := next.DeleteTask("t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	switched, _ := viewed.ChangeActiveBoard("b")
	if switched.LastViewedTaskID != "" {
		t.Fatalf("expected ChangeActiveBoard to clear viewed task")
	}
}

func TestTogglesDoNotTouchBoards(t *testing.T) {
	s := State{}.InitializeBoards([]domain.Board{boardFixture(t, "b", "Board", col("Todo", "t1"))})
	dark := s.ToggleDarkMode()
	panel := dark.ToggleSidePanel()
	if !dark.DarkMode || s.DarkMode {
		t.Fatalf("unexpected dark mode flip")
	}
	if !panel.SidePanelOpen || dark.SidePanelOpen {
		t.Fatalf("unexpected side panel flip")
	}
	if &panel.Boards[0] != &s.Boards[0] {
		t.Fatalf("expected boards shared across toggles")
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := State{}.InitializeBoards([]domain.Board{
		boardFixture(t, "b", "Board", col("Todo", "t1", "t2", "t3"), col("Doing", "t4"), col("Done", "t5", "t6")),
	})
	next := 100
	for step := 0; step < 500; step++ {
		board, _ := s.ActiveBoard()
		var (
			candidate State
			err       error
		)
		switch rng.Intn(4) {
		case 0:
			src := board.Columns[rng.Intn(len(board.Columns))]
			if len(src.Tasks) == 0 {
				continue
			}
			dst := board.Columns[rng.Intn(len(board.Columns))]
			candidate, err = s.MoveTask(TaskMove{
				SourceColumnID:      src.ID,
				DestinationColumnID: dst.ID,
				SourceIndex:         rng.Intn(len(src.Tasks)),
				DestinationIndex:    rng.Intn(len(dst.Tasks) + 2),
			})
		case 1:
			next++
			column := board.Columns[rng.Intn(len(board.Columns))]
			task, buildErr := domain.NewTask(domain.TaskInput{
				ID:     "n" + strconv.Itoa(next),
				Name:   "new",
				Status: column.Name,
			}, stateTestNow)
			if buildErr != nil {
				t.Fatalf("NewTask() error = %v", buildErr)
			}
			candidate, err = s.CreateTask(task)
		case 2:
			column := board.Columns[rng.Intn(len(board.Columns))]
			if len(column.Tasks) == 0 {
				continue
			}
			task := column.Tasks[rng.Intn(len(column.Tasks))]
			task.Status = board.Columns[rng.Intn(len(board.Columns))].Name
			mode := []UpdateMode{UpdateModeStatus, UpdateModeEdit, UpdateModeChecklist}[rng.Intn(3)]
			candidate, err = s.UpdateTask(task, mode, column.Name)
		case 3:
			column := board.Columns[rng.Intn(len(board.Columns))]
			if len(column.Tasks) == 0 {
				continue
			}
			candidate, err = s.DeleteTask(column.Tasks[0].ID)
		}
		if err != nil {
			t.Fatalf("step %d: unexpected error %v", step, err)
		}
		mustInvariants(t, candidate)
		s = candidate
	}
}

func TestParseUpdateMode(t *testing.T) {
	for _, raw := range []string{"checklist", " Status ", "EDIT"} {
		if _, err := ParseUpdateMode(raw); err != nil {
			t.Fatalf("ParseUpdateMode(%q) error = %v", raw, err)
		}
	}
	if _, err := ParseUpdateMode("drag"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
