package app

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

type fakeRepo struct {
	state   *State
	events  []domain.ChangeEvent
	saveErr error
	loadErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

func (f *fakeRepo) LoadState(_ context.Context) (State, error) {
	if f.loadErr != nil {
		return State{}, f.loadErr
	}
	if f.state == nil {
		return State{}, ErrNotFound
	}
	return f.state.Clone(), nil
}

func (f *fakeRepo) SaveState(_ context.Context, state State, event domain.ChangeEvent) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cloned := state.Clone()
	f.state = &cloned
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	out := make([]domain.ChangeEvent, 0, len(f.events))
	for i := len(f.events) - 1; i >= 0; i-- {
		out = append(out, f.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestService(t *testing.T, repo Repository, cfg ServiceConfig) *Service {
	t.Helper()
	idCounter := 0
	return NewService(repo, func() string {
		idCounter++
		return "id-" + strconv.Itoa(idCounter)
	}, func() time.Time {
		return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	}, cfg)
}

func TestLoadSeedsEmptyRepository(t *testing.T) {
	repo := newFakeRepo()
	seed := []domain.Board{boardFixture(t, "seed", "Seeded", col("Todo", "t1"))}
	svc := newTestService(t, repo, ServiceConfig{InitialDarkMode: true, Seed: seed})

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	state := svc.Current()
	if state.ActiveBoardID != "seed" || !state.DarkMode {
		t.Fatalf("unexpected initial state %+v", state)
	}
	if len(repo.events) != 1 || repo.events[0].Operation != domain.ChangeOperationInitialize {
		t.Fatalf("expected initialize event, got %+v", repo.events)
	}

	reloaded := newTestService(t, repo, ServiceConfig{})
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reloaded.Current(); got.ActiveBoardID != "seed" || !got.DarkMode {
		t.Fatalf("expected persisted state to win over config, got %+v", got)
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected no second initialize event, got %d", len(repo.events))
	}
}

func TestLoadPropagatesRepositoryErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.loadErr = errors.New("disk gone")
	svc := newTestService(t, repo, ServiceConfig{})
	if err := svc.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestServiceBoardOperations(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(t, repo, ServiceConfig{})
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	board, err := svc.CreateBoard(ctx, CreateBoardInput{Name: " Web Design ", Columns: []string{"Todo", "Doing"}})
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if board.Name != "Web Design" || len(board.Columns) != 2 {
		t.Fatalf("unexpected board %+v", board)
	}
	if svc.Current().ActiveBoardID != board.ID {
		t.Fatalf("expected created board to be active")
	}

	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "web design"}); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "This name is far too long"}); !errors.Is(err, domain.ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Ok", Columns: []string{"Todo", "todo"}}); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected duplicate column error, got %v", err)
	}
	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Bad!"}); !errors.Is(err, domain.ErrInvalidNameChars) {
		t.Fatalf("expected ErrInvalidNameChars, got %v", err)
	}

	task, err := svc.CreateTask(ctx, CreateTaskInput{Name: "Design logo", Status: "Todo"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	updated, err := svc.UpdateBoard(ctx, UpdateBoardInput{
		BoardID: board.ID,
		Name:    "Web",
		Columns: []ColumnInput{
			{ID: board.Columns[0].ID, Name: "Backlog"},
			{Name: "Done"},
		},
	})
	if err != nil {
		t.Fatalf("UpdateBoard() error = %v", err)
	}
	if updated.Name != "Web" || len(updated.Columns) != 2 {
		t.Fatalf("unexpected updated board %+v", updated)
	}
	if updated.Columns[0].ID != board.Columns[0].ID || len(updated.Columns[0].Tasks) != 1 {
		t.Fatalf("expected renamed column to keep its tasks, got %+v", updated.Columns[0])
	}
	got, err := svc.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Status != "Backlog" {
		t.Fatalf("expected status to follow column rename, got %q", got.Status)
	}
	if _, err := svc.UpdateBoard(ctx, UpdateBoardInput{BoardID: "missing", Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateBoard(ctx, UpdateBoardInput{BoardID: board.ID, Name: "Web", Columns: []ColumnInput{{ID: "ghost", Name: "Ghost"}}}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
	before := svc.Current()
	_, err = svc.UpdateBoard(ctx, UpdateBoardInput{
		BoardID: board.ID,
		Name:    "Web",
		Columns: []ColumnInput{
			{ID: board.Columns[0].ID, Name: "Backlog"},
			{ID: board.Columns[0].ID, Name: "Later"},
		},
	})
	if !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for a repeated column id, got %v", err)
	}
	if after := svc.Current(); len(after.Boards[0].Columns) != len(before.Boards[0].Columns) {
		t.Fatalf("expected rejected edit to leave state unchanged, got %+v", after.Boards[0].Columns)
	}
	if err := svc.Current().CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}

	second, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Second"})
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.ChangeActiveBoard(ctx, board.ID); err != nil {
		t.Fatalf("ChangeActiveBoard() error = %v", err)
	}
	if err := svc.DeleteBoard(ctx, board.ID); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	if active := svc.Current().ActiveBoardID; active != second.ID {
		t.Fatalf("expected fallback to %q, got %q", second.ID, active)
	}
	if err := svc.DeleteBoard(ctx, second.ID); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	if state := svc.Current(); len(state.Boards) != 0 || state.ActiveBoardID != "" {
		t.Fatalf("expected empty state, got %+v", state)
	}
	if _, err := svc.CreateTask(ctx, CreateTaskInput{Name: "orphan"}); !errors.Is(err, ErrNoActiveBoard) {
		t.Fatalf("expected ErrNoActiveBoard, got %v", err)
	}
}

func TestServiceTaskOperations(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(t, repo, ServiceConfig{})
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	board, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Board", Columns: []string{"Todo", "Doing", "Done"}})
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}

	first, err := svc.CreateTask(ctx, CreateTaskInput{
		Name:     "First",
		Subtasks: []SubtaskInput{{Name: "one"}, {Name: "two"}},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if first.Status != "Todo" {
		t.Fatalf("expected default status Todo, got %q", first.Status)
	}
	second, err := svc.CreateTask(ctx, CreateTaskInput{Name: "Second", Status: "Todo"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := svc.CreateTask(ctx, CreateTaskInput{Name: "  "}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, CreateTaskInput{Name: "x", Status: "Nope"}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}

	toggled, err := svc.ToggleSubtask(ctx, first.ID, first.Subtasks[1].ID)
	if err != nil {
		t.Fatalf("ToggleSubtask() error = %v", err)
	}
	if !toggled.Subtasks[1].Completed || toggled.CompletedSubtasks() != 1 {
		t.Fatalf("expected second subtask completed, got %+v", toggled.Subtasks)
	}
	if _, err := svc.ToggleSubtask(ctx, first.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	moved, err := svc.SetTaskStatus(ctx, first.ID, "Done")
	if err != nil {
		t.Fatalf("SetTaskStatus() error = %v", err)
	}
	if moved.Status != "Done" {
		t.Fatalf("expected status Done, got %q", moved.Status)
	}

	description := "now with details"
	edited, err := svc.UpdateTask(ctx, UpdateTaskInput{
		TaskID:         second.ID,
		Mode:           UpdateModeEdit,
		Name:           "Second edited",
		Description:    &description,
		Status:         "Doing",
		PreviousStatus: "Todo",
		Subtasks:       []SubtaskInput{{Name: "fresh", Completed: true}},
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if edited.Name != "Second edited" || edited.Description != description || edited.Status != "Doing" || len(edited.Subtasks) != 1 {
		t.Fatalf("unexpected edited task %+v", edited)
	}
	if svc.Current().LastViewedTaskID != second.ID {
		t.Fatalf("expected edited task to become last viewed")
	}

	dragged, err := svc.MoveTask(ctx, TaskMove{
		TaskID:              second.ID,
		SourceColumnID:      board.Columns[1].ID,
		DestinationColumnID: board.Columns[2].ID,
		SourceIndex:         0,
		DestinationIndex:    0,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if dragged.ID != second.ID || dragged.Status != "Done" {
		t.Fatalf("unexpected dragged task %+v", dragged)
	}
	doneColumn := svc.Current().Boards[0].Columns[2]
	if doneColumn.Tasks[0].ID != second.ID || doneColumn.Tasks[1].ID != first.ID {
		t.Fatalf("unexpected Done order %+v", doneColumn.Tasks)
	}

	viewed, err := svc.ViewTask(ctx, first.ID)
	if err != nil {
		t.Fatalf("ViewTask() error = %v", err)
	}
	if viewed.ID != first.ID {
		t.Fatalf("unexpected viewed task %+v", viewed)
	}
	if err := svc.DeleteTask(ctx, first.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := svc.GetTask(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	events, err := svc.ListChangeEvents(ctx, 3)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(events) != 3 || events[0].Operation != domain.ChangeOperationDeleteTask {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].BoardID != board.ID {
		t.Fatalf("expected event board id %q, got %q", board.ID, events[0].BoardID)
	}
}

func TestServiceTogglesAndSubscribe(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{InitialSidePanelOpen: true})
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	updates, cancel := svc.Subscribe()
	defer cancel()

	dark, err := svc.ToggleDarkMode(ctx)
	if err != nil || !dark {
		t.Fatalf("ToggleDarkMode() = %v, %v", dark, err)
	}
	select {
	case <-updates:
	default:
		t.Fatalf("expected change signal after toggle")
	}
	open, err := svc.ToggleSidePanel(ctx)
	if err != nil || open {
		t.Fatalf("ToggleSidePanel() = %v, %v", open, err)
	}

	events, err := svc.ListChangeEvents(ctx, 10)
	if err != nil || len(events) != 0 {
		t.Fatalf("expected no events without repository, got %v, %v", events, err)
	}

	cancel()
	cancel()
	if svc.broker.count() != 0 {
		t.Fatalf("expected subscriber removed")
	}
}

func TestServiceKeepsStateWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(t, repo, ServiceConfig{})
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	repo.saveErr = errors.New("write failed")

	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Lost"}); err == nil {
		t.Fatalf("expected persist error")
	}
	if len(svc.Current().Boards) != 0 {
		t.Fatalf("expected state unchanged after persist failure")
	}
}

func TestInitializeBoardsRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRepo(), ServiceConfig{
		Seed: []domain.Board{boardFixture(t, "a", "A", col("Todo"))},
	})
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	replacement := []domain.Board{boardFixture(t, "b", "B", col("Todo"))}
	if err := svc.InitializeBoards(ctx, replacement, false); !errors.Is(err, ErrStateNotEmpty) {
		t.Fatalf("expected ErrStateNotEmpty, got %v", err)
	}
	if err := svc.InitializeBoards(ctx, replacement, true); err != nil {
		t.Fatalf("InitializeBoards() error = %v", err)
	}
	if got := svc.Current().ActiveBoardID; got != "b" {
		t.Fatalf("expected active b, got %q", got)
	}
}

func TestServiceSessionOnlyRejectsRepeatedColumnIDs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	board, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Web", Columns: []string{"Todo", "Doing"}})
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.CreateTask(ctx, CreateTaskInput{Name: "Design logo", Status: "Todo"}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	todo := board.Columns[0].ID
	_, err = svc.UpdateBoard(ctx, UpdateBoardInput{
		BoardID: board.ID,
		Name:    "Web",
		Columns: []ColumnInput{{ID: todo, Name: "Todo"}, {ID: todo, Name: "Later"}},
	})
	if !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := svc.Current().CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}
}

func TestServiceEditReusesSubtaskIDOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, ServiceConfig{})
	if _, err := svc.CreateBoard(ctx, CreateBoardInput{Name: "Web", Columns: []string{"Todo"}}); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	task, err := svc.CreateTask(ctx, CreateTaskInput{Name: "Logo", Status: "Todo", Subtasks: []SubtaskInput{{Name: "sketch"}}})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	sketch := task.Subtasks[0].ID
	edited, err := svc.UpdateTask(ctx, UpdateTaskInput{
		TaskID:         task.ID,
		Mode:           UpdateModeEdit,
		Name:           "Logo",
		Status:         "Todo",
		PreviousStatus: "Todo",
		Subtasks:       []SubtaskInput{{ID: sketch, Name: "sketch"}, {ID: sketch, Name: "ink"}},
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if len(edited.Subtasks) != 2 || edited.Subtasks[0].ID != sketch || edited.Subtasks[1].ID == sketch {
		t.Fatalf("expected the second copy to get a fresh id, got %+v", edited.Subtasks)
	}
}
