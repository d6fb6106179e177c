package domain

import (
	"strings"
	"time"
)

// Task is a unit of work owned by the column whose name equals Status.
type Task struct {
	ID          string
	Name        string
	Description string
	Status      string
	Subtasks    []Subtask
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskInput holds the values used to construct a Task.
type TaskInput struct {
	ID          string
	Name        string
	Description string
	Status      string
	Subtasks    []Subtask
}

// Subtask is a checklist item inside a task.
type Subtask struct {
	ID        string
	Name      string
	Completed bool
}

// NewTask trims its input and requires an ID, a name and a status. Every subtask needs an ID and a name.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Name == "" {
		return Task{}, ErrInvalidName
	}
	if in.Status == "" {
		return Task{}, ErrInvalidStatus
	}
	for _, subtask := range in.Subtasks {
		if strings.TrimSpace(subtask.ID) == "" {
			return Task{}, ErrInvalidID
		}
		if strings.TrimSpace(subtask.Name) == "" {
			return Task{}, ErrInvalidName
		}
	}

	return Task{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Subtasks:    cloneSubtasks(in.Subtasks),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// NewSubtask trims id and name and rejects either when empty.
func NewSubtask(id, name string, completed bool) (Subtask, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Subtask{}, ErrInvalidID
	}
	if name == "" {
		return Subtask{}, ErrInvalidName
	}
	return Subtask{ID: id, Name: name, Completed: completed}, nil
}

// UpdateDetails replaces the editable task fields.
func (t *Task) UpdateDetails(name, description, status string, subtasks []Subtask, now time.Time) error {
	name = strings.TrimSpace(name)
	status = strings.TrimSpace(status)
	if name == "" {
		return ErrInvalidName
	}
	if status == "" {
		return ErrInvalidStatus
	}
	t.Name = name
	t.Description = strings.TrimSpace(description)
	t.Status = status
	t.Subtasks = cloneSubtasks(subtasks)
	t.UpdatedAt = now.UTC()
	return nil
}

// ToggleSubtask flips the completion flag of one subtask and reports whether it was found.
func (t *Task) ToggleSubtask(subtaskID string, now time.Time) bool {
	for idx := range t.Subtasks {
		if t.Subtasks[idx].ID != subtaskID {
			continue
		}
		subtasks := cloneSubtasks(t.Subtasks)
		subtasks[idx].Completed = !subtasks[idx].Completed
		t.Subtasks = subtasks
		t.UpdatedAt = now.UTC()
		return true
	}
	return false
}

// CompletedSubtasks returns the number of completed subtasks.
func (t Task) CompletedSubtasks() int {
	done := 0
	for _, subtask := range t.Subtasks {
		if subtask.Completed {
			done++
		}
	}
	return done
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Subtasks = cloneSubtasks(t.Subtasks)
	return t
}

func cloneSubtasks(subtasks []Subtask) []Subtask {
	if subtasks == nil {
		return nil
	}
	out := make([]Subtask, len(subtasks))
	copy(out, subtasks)
	return out
}
