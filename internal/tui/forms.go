package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// Task form field indexes. The status selector follows the text inputs.
const (
	taskFieldName = iota
	taskFieldDescription
	taskFieldSubtasks
	taskFieldStatus
	taskFieldCount
)

// Board form field indexes.
const (
	boardFieldName = iota
	boardFieldColumns
	boardFieldCount
)

// taskForm holds the new/edit task modal.
type taskForm struct {
	taskID         string
	previousStatus string
	inputs         []textinput.Model
	statuses       []string
	status         int
	focus          int
	subtasks       []domain.Subtask
	returnMode     inputMode
	err            string
}

// boardForm holds the new/edit board modal.
type boardForm struct {
	boardID string
	inputs  []textinput.Model
	columns []domain.Column
	focus   int
	err     string
}

// newModalInput builds a text input used by the modal forms.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startTaskForm opens the task form; task is nil for a new task.
func (m Model) startTaskForm(task *domain.Task, from inputMode) (tea.Model, tea.Cmd) {
	board, ok := m.state.ActiveBoard()
	if !ok {
		m.status = "create a board first"
		return m, nil
	}
	if len(board.Columns) == 0 {
		m.status = "add a column before creating tasks"
		return m, nil
	}
	form := taskForm{
		statuses:   board.ColumnNames(),
		status:     clamp(m.selectedColumn, 0, len(board.Columns)-1),
		returnMode: from,
	}
	var name, description, subtasks string
	if task != nil {
		form.taskID = task.ID
		form.previousStatus = task.Status
		form.subtasks = task.Subtasks
		if idx := board.ColumnIndexByName(task.Status); idx >= 0 {
			form.status = idx
		}
		name = task.Name
		description = task.Description
		names := make([]string, 0, len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			names = append(names, subtask.Name)
		}
		subtasks = strings.Join(names, ", ")
	}
	form.inputs = []textinput.Model{
		newModalInput("name: ", "e.g. Take coffee break", name, 120),
		newModalInput("description: ", "optional, markdown", description, 2000),
		newModalInput("subtasks: ", "comma separated", subtasks, 1000),
	}
	form.inputs[taskFieldName].Focus()
	m.taskForm = form
	m.mode = modeTaskForm
	if task != nil {
		m.status = "edit task"
	} else {
		m.status = "new task"
	}
	return m, nil
}

// startBoardForm opens the board form for a new board or the active one.
func (m Model) startBoardForm(edit bool) (tea.Model, tea.Cmd) {
	form := boardForm{}
	var name, columns string
	if edit {
		board, ok := m.state.ActiveBoard()
		if !ok {
			m.status = "no board selected"
			return m, nil
		}
		form.boardID = board.ID
		form.columns = board.Columns
		name = board.Name
		columns = strings.Join(board.ColumnNames(), ", ")
	}
	form.inputs = []textinput.Model{
		newModalInput("name: ", "e.g. Web Design", name, domain.MaxLabelNameLength),
		newModalInput("columns: ", "Todo, Doing, Done", columns, 400),
	}
	form.inputs[boardFieldName].Focus()
	m.boardForm = form
	m.mode = modeBoardForm
	if edit {
		m.status = "edit board"
	} else {
		m.status = "new board"
	}
	return m, nil
}

// handleTaskFormKey handles keys while the task form is open.
func (m Model) handleTaskFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	form := &m.taskForm
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = form.returnMode
		m.taskForm = taskForm{}
		m.status = "cancelled"
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextBoard):
		form.setFocus(wrapIndex(form.focus, 1, taskFieldCount))
		return m, nil
	case key.Matches(msg, m.keys.prevBoard):
		form.setFocus(wrapIndex(form.focus, -1, taskFieldCount))
		return m, nil
	case key.Matches(msg, m.keys.taskInfo):
		return m.submitTaskForm()
	}
	if form.focus == taskFieldStatus {
		switch msg.String() {
		case "left", "h":
			form.status = wrapIndex(form.status, -1, len(form.statuses))
		case "right", "l", "space", " ":
			form.status = wrapIndex(form.status, 1, len(form.statuses))
		}
		return m, nil
	}
	var cmd tea.Cmd
	form.inputs[form.focus], cmd = form.inputs[form.focus].Update(msg)
	return m, cmd
}

// setFocus moves keyboard focus to field idx.
func (f *taskForm) setFocus(idx int) {
	f.focus = idx
	for i := range f.inputs {
		if i == idx {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

// submitTaskForm validates the form and sends it to the service.
func (m Model) submitTaskForm() (tea.Model, tea.Cmd) {
	form := m.taskForm
	name := strings.TrimSpace(form.inputs[taskFieldName].Value())
	description := strings.TrimSpace(form.inputs[taskFieldDescription].Value())
	subtaskNames, err := splitList(form.inputs[taskFieldSubtasks].Value(), domain.NameKindSubtask)
	if err == nil {
		err = domain.ValidateName(domain.NameKindTask, name)
	}
	if err != nil {
		m.taskForm.err = err.Error()
		return m, nil
	}
	status := form.statuses[clamp(form.status, 0, len(form.statuses)-1)]
	subtasks := mergeSubtasks(form.subtasks, subtaskNames)

	m.mode = form.returnMode
	m.taskForm = taskForm{}
	svc := m.svc
	if form.taskID == "" {
		return m, func() tea.Msg {
			task, err := svc.CreateTask(context.Background(), app.CreateTaskInput{
				Name:        name,
				Description: description,
				Status:      status,
				Subtasks:    subtasks,
			})
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "created task " + task.Name, focusTaskID: task.ID}
		}
	}
	in := app.UpdateTaskInput{
		TaskID:         form.taskID,
		Mode:           app.UpdateModeEdit,
		Name:           name,
		Description:    &description,
		Status:         status,
		PreviousStatus: form.previousStatus,
		Subtasks:       subtasks,
	}
	return m, func() tea.Msg {
		task, err := svc.UpdateTask(context.Background(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "saved task " + task.Name, focusTaskID: task.ID}
	}
}

// handleBoardFormKey handles keys while the board form is open.
func (m Model) handleBoardFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	form := &m.boardForm
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = modeNone
		m.boardForm = boardForm{}
		m.status = "cancelled"
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextBoard), key.Matches(msg, m.keys.prevBoard):
		next := wrapIndex(form.focus, 1, boardFieldCount)
		form.focus = next
		for i := range form.inputs {
			if i == next {
				form.inputs[i].Focus()
			} else {
				form.inputs[i].Blur()
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.taskInfo):
		return m.submitBoardForm()
	}
	var cmd tea.Cmd
	form.inputs[form.focus], cmd = form.inputs[form.focus].Update(msg)
	return m, cmd
}

// submitBoardForm validates the form and sends it to the service.
func (m Model) submitBoardForm() (tea.Model, tea.Cmd) {
	form := m.boardForm
	name := strings.TrimSpace(form.inputs[boardFieldName].Value())
	columnNames, err := splitList(form.inputs[boardFieldColumns].Value(), domain.NameKindColumn)
	if err == nil {
		err = validateBoardForm(m.state, form.boardID, name, columnNames)
	}
	if err != nil {
		m.boardForm.err = err.Error()
		return m, nil
	}

	m.mode = modeNone
	m.boardForm = boardForm{}
	svc := m.svc
	if form.boardID == "" {
		return m, func() tea.Msg {
			board, err := svc.CreateBoard(context.Background(), app.CreateBoardInput{Name: name, Columns: columnNames})
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "created board " + board.Name, resetSelection: true}
		}
	}
	in := app.UpdateBoardInput{
		BoardID: form.boardID,
		Name:    name,
		Columns: matchColumns(form.columns, columnNames),
	}
	return m, func() tea.Msg {
		board, err := svc.UpdateBoard(context.Background(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "saved board " + board.Name}
	}
}

// validateBoardForm applies the board form rules before the store is called.
func validateBoardForm(state app.State, boardID, name string, columns []string) error {
	if err := domain.ValidateName(domain.NameKindBoard, name); err != nil {
		return err
	}
	names := make([]string, 0, len(state.Boards)+1)
	for _, board := range state.Boards {
		if board.ID != boardID {
			names = append(names, board.Name)
		}
	}
	if err := domain.ValidateUniqueNames(domain.NameKindBoard, append(names, name)); err != nil {
		return err
	}
	for _, column := range columns {
		if err := domain.ValidateName(domain.NameKindColumn, column); err != nil {
			return err
		}
	}
	return domain.ValidateUniqueNames(domain.NameKindColumn, columns)
}

// splitList parses a comma separated field. A blank field is an empty list; a blank entry is an error.
func splitList(raw string, kind domain.NameKind) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for idx, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			if idx == len(parts)-1 {
				continue
			}
			return nil, fmt.Errorf("%s %d: %w", kind, idx+1, domain.ValidateName(kind, part))
		}
		out = append(out, part)
	}
	return out, nil
}

// mergeSubtasks keeps ids and completion of existing subtasks whose names survive the edit.
func mergeSubtasks(existing []domain.Subtask, names []string) []app.SubtaskInput {
	used := make([]bool, len(existing))
	out := make([]app.SubtaskInput, 0, len(names))
	for _, name := range names {
		in := app.SubtaskInput{Name: name}
		for idx, subtask := range existing {
			if !used[idx] && strings.EqualFold(subtask.Name, name) {
				used[idx] = true
				in.ID = subtask.ID
				in.Completed = subtask.Completed
				break
			}
		}
		out = append(out, in)
	}
	return out
}

// matchColumns maps edited column names onto existing columns so renamed columns keep their tasks.
// Names are matched first; leftover names take the unmatched column at the same position.
func matchColumns(existing []domain.Column, names []string) []app.ColumnInput {
	out := make([]app.ColumnInput, len(names))
	used := make([]bool, len(existing))
	for i, name := range names {
		out[i].Name = name
		for idx, column := range existing {
			if !used[idx] && strings.EqualFold(column.Name, name) {
				used[idx] = true
				out[i].ID = column.ID
				break
			}
		}
	}
	for i := range out {
		if out[i].ID == "" && i < len(existing) && !used[i] {
			used[i] = true
			out[i].ID = existing[i].ID
		}
	}
	return out
}
