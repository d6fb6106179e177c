package domain

import "strings"

// Column is a named status lane; tasks are ordered by slice position.
type Column struct {
	ID    string
	Name  string
	Tasks []Task
}

// NewColumn returns an empty column.
func NewColumn(id, name string) (Column, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if name == "" {
		return Column{}, ErrInvalidName
	}
	return Column{
		ID:    id,
		Name:  name,
		Tasks: []Task{},
	}, nil
}

// Renamed returns a copy of c carrying name, with every task status rewritten to match.
func (c Column) Renamed(name string) (Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Column{}, ErrInvalidName
	}
	out := c.Clone()
	out.Name = name
	for idx := range out.Tasks {
		out.Tasks[idx].Status = name
	}
	return out, nil
}

// TaskIndex returns the index of the task with id, or -1.
func (c Column) TaskIndex(id string) int {
	for idx, task := range c.Tasks {
		if task.ID == id {
			return idx
		}
	}
	return -1
}

// Clone returns a deep copy of c.
func (c Column) Clone() Column {
	if c.Tasks == nil {
		return c
	}
	tasks := make([]Task, len(c.Tasks))
	for idx, task := range c.Tasks {
		tasks[idx] = task.Clone()
	}
	c.Tasks = tasks
	return c
}
