package domain

import (
	"strings"
	"time"
)

// Board represents one kanban board and the columns it owns.
type Board struct {
	ID        string
	Name      string
	Columns   []Column
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBoard validates id and name and returns an empty board.
func NewBoard(id, name string, columns []Column, now time.Time) (Board, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Board{}, ErrInvalidID
	}
	if name == "" {
		return Board{}, ErrInvalidName
	}

	return Board{
		ID:        id,
		Name:      name,
		Columns:   cloneColumns(columns),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the board.
func (b *Board) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	b.Name = name
	b.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy that shares no slices with b.
func (b Board) Clone() Board {
	b.Columns = cloneColumns(b.Columns)
	return b
}

// ColumnIndex returns the index of the column with id, or -1.
func (b Board) ColumnIndex(id string) int {
	for idx, column := range b.Columns {
		if column.ID == id {
			return idx
		}
	}
	return -1
}

// ColumnIndexByName returns the index of the column whose name equals name, or -1.
func (b Board) ColumnIndexByName(name string) int {
	name = strings.TrimSpace(name)
	for idx, column := range b.Columns {
		if column.Name == name {
			return idx
		}
	}
	return -1
}

// FindTask locates a task by id and reports its column and task indexes.
func (b Board) FindTask(id string) (int, int, bool) {
	for colIdx, column := range b.Columns {
		if taskIdx := column.TaskIndex(id); taskIdx >= 0 {
			return colIdx, taskIdx, true
		}
	}
	return -1, -1, false
}

// TaskCount returns the number of tasks across all columns.
func (b Board) TaskCount() int {
	total := 0
	for _, column := range b.Columns {
		total += len(column.Tasks)
	}
	return total
}

// ColumnNames returns column names in display order.
func (b Board) ColumnNames() []string {
	out := make([]string, 0, len(b.Columns))
	for _, column := range b.Columns {
		out = append(out, column.Name)
	}
	return out
}

func cloneColumns(columns []Column) []Column {
	if columns == nil {
		return nil
	}
	out := make([]Column, len(columns))
	for idx, column := range columns {
		out[idx] = column.Clone()
	}
	return out
}
