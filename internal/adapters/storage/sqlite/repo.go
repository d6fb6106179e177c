package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// fileDSNPragmas let a TUI and a serve process share one database file.
const fileDSNPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// memoryDBSeq gives every in-memory repository its own database.
var memoryDBSeq atomic.Int64

// ui_state keys.
const (
	uiKeyActiveBoardID    = "active_board_id"
	uiKeyLastViewedTaskID = "last_viewed_task_id"
	uiKeyDarkMode         = "dark_mode"
	uiKeySidePanelOpen    = "side_panel_open"
)

// defaultEventLimit bounds ListChangeEvents when the caller passes no limit.
const defaultEventLimit = 50

// Repository persists the whole board store in SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database file at path, creating parent directories as needed.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return open("file:"+path+fileDSNPragmas, 0)
}

// OpenInMemory opens a private database that lives until Close.
func OpenInMemory() (*Repository, error) {
	name := "tavla-mem-" + strconv.FormatInt(memoryDBSeq.Add(1), 10)
	// One connection keeps the memory database alive and serializes writers.
	return open("file:"+name+"?mode=memory&cache=shared", 1)
}

func open(dsn string, maxConns int) (*Repository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema when missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS columns_v1 (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			column_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE,
			FOREIGN KEY(column_id) REFERENCES columns_v1(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS subtasks (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS ui_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		// change_events outlive deleted boards, so board_id is not a foreign key.
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board_id TEXT NOT NULL DEFAULT '',
			task_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_columns_board_position ON columns_v1(board_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_column_position ON tasks(column_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_subtasks_task_position ON subtasks(task_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created_at ON change_events(created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveState replaces the stored boards with state and appends event, in one transaction.
func (r *Repository) SaveState(ctx context.Context, state app.State, event domain.ChangeEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM subtasks`,
		`DELETE FROM tasks`,
		`DELETE FROM columns_v1`,
		`DELETE FROM boards`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear board tables: %w", err)
		}
	}

	for boardPos, board := range state.Boards {
		if err = insertBoard(ctx, tx, board, boardPos); err != nil {
			return err
		}
	}

	ui := map[string]string{
		uiKeyActiveBoardID:    state.ActiveBoardID,
		uiKeyLastViewedTaskID: state.LastViewedTaskID,
		uiKeyDarkMode:         strconv.FormatBool(state.DarkMode),
		uiKeySidePanelOpen:    strconv.FormatBool(state.SidePanelOpen),
	}
	for key, value := range ui {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO ui_state(key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("upsert ui_state %s: %w", key, err)
		}
	}

	if err = insertChangeEvent(ctx, tx, event); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// LoadState returns the stored store, or app.ErrNotFound when nothing was saved yet.
func (r *Repository) LoadState(ctx context.Context) (app.State, error) {
	ui, err := r.loadUIState(ctx)
	if err != nil {
		return app.State{}, err
	}
	if len(ui) == 0 {
		return app.State{}, app.ErrNotFound
	}

	boards, err := r.loadBoards(ctx)
	if err != nil {
		return app.State{}, err
	}
	state := app.State{
		Boards:           boards,
		ActiveBoardID:    ui[uiKeyActiveBoardID],
		LastViewedTaskID: ui[uiKeyLastViewedTaskID],
		DarkMode:         ui[uiKeyDarkMode] == "true",
		SidePanelOpen:    ui[uiKeySidePanelOpen] == "true",
	}
	return state, nil
}

// ListChangeEvents lists the most recent change events, newest first.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, board_id, task_id, operation, metadata_json, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event        domain.ChangeEvent
			operation    string
			metadataJSON string
			createdAt    string
		)
		if err := rows.Scan(&event.ID, &event.BoardID, &event.TaskID, &operation, &metadataJSON, &createdAt); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(operation)
		event.OccurredAt = parseTS(createdAt)
		if err := json.Unmarshal([]byte(metadataJSON), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// execerContext represents an exec-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertBoard writes one board and everything it owns.
func insertBoard(ctx context.Context, execer execerContext, board domain.Board, position int) error {
	if _, err := execer.ExecContext(ctx, `
		INSERT INTO boards(id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, board.ID, board.Name, position, ts(board.CreatedAt), ts(board.UpdatedAt)); err != nil {
		return fmt.Errorf("insert board %q: %w", board.ID, err)
	}
	for colPos, column := range board.Columns {
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO columns_v1(id, board_id, name, position)
			VALUES (?, ?, ?, ?)
		`, column.ID, board.ID, column.Name, colPos); err != nil {
			return fmt.Errorf("insert column %q: %w", column.ID, err)
		}
		for taskPos, task := range column.Tasks {
			if _, err := execer.ExecContext(ctx, `
				INSERT INTO tasks(id, board_id, column_id, position, name, description, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				task.ID,
				board.ID,
				column.ID,
				taskPos,
				task.Name,
				task.Description,
				task.Status,
				ts(task.CreatedAt),
				ts(task.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert task %q: %w", task.ID, err)
			}
			for subPos, subtask := range task.Subtasks {
				if _, err := execer.ExecContext(ctx, `
					INSERT INTO subtasks(id, task_id, position, name, completed)
					VALUES (?, ?, ?, ?, ?)
				`, subtask.ID, task.ID, subPos, subtask.Name, boolToInt(subtask.Completed)); err != nil {
					return fmt.Errorf("insert subtask %q: %w", subtask.ID, err)
				}
			}
		}
	}
	return nil
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(board_id, task_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.BoardID,
		event.TaskID,
		string(event.Operation),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

func (r *Repository) loadUIState(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM ui_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// loadBoards rebuilds the board tree in stored order.
func (r *Repository) loadBoards(ctx context.Context) ([]domain.Board, error) {
	boards := []domain.Board{}
	boardIdx := map[string]int{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM boards
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			board                domain.Board
			createdAt, updatedAt string
		)
		if err := rows.Scan(&board.ID, &board.Name, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		board.CreatedAt = parseTS(createdAt)
		board.UpdatedAt = parseTS(updatedAt)
		board.Columns = []domain.Column{}
		boardIdx[board.ID] = len(boards)
		boards = append(boards, board)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	type columnRef struct{ board, column int }
	columnIdx := map[string]columnRef{}
	rows, err = r.db.QueryContext(ctx, `
		SELECT id, board_id, name
		FROM columns_v1
		ORDER BY board_id, position ASC
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var column domain.Column
		var boardID string
		if err := rows.Scan(&column.ID, &boardID, &column.Name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		bi, ok := boardIdx[boardID]
		if !ok {
			continue
		}
		column.Tasks = []domain.Task{}
		columnIdx[column.ID] = columnRef{board: bi, column: len(boards[bi].Columns)}
		boards[bi].Columns = append(boards[bi].Columns, column)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	subtasks, err := r.loadSubtasks(ctx)
	if err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT id, column_id, name, description, status, created_at, updated_at
		FROM tasks
		ORDER BY column_id, position ASC
	`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			task                 domain.Task
			columnID             string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&task.ID, &columnID, &task.Name, &task.Description, &task.Status, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ref, ok := columnIdx[columnID]
		if !ok {
			continue
		}
		task.CreatedAt = parseTS(createdAt)
		task.UpdatedAt = parseTS(updatedAt)
		task.Subtasks = subtasks[task.ID]
		column := &boards[ref.board].Columns[ref.column]
		column.Tasks = append(column.Tasks, task)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *Repository) loadSubtasks(ctx context.Context) (map[string][]domain.Subtask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, name, completed
		FROM subtasks
		ORDER BY task_id, position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]domain.Subtask{}
	for rows.Next() {
		var (
			subtask   domain.Subtask
			taskID    string
			completed int
		)
		if err := rows.Scan(&subtask.ID, &taskID, &subtask.Name, &completed); err != nil {
			return nil, err
		}
		subtask.Completed = completed != 0
		out[taskID] = append(out[taskID], subtask)
	}
	return out, rows.Err()
}

// closeRows closes rows and reports any iteration error.
func closeRows(rows *sql.Rows) error {
	iterErr := rows.Err()
	closeErr := rows.Close()
	if iterErr != nil {
		return iterErr
	}
	return closeErr
}

// normalizeEventTS falls back to the current time for zero timestamps.
func normalizeEventTS(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// ts formats t for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS reads a stored timestamp; malformed values become the zero time.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
