package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// Service is the slice of the board store the TUI drives.
type Service interface {
	Current() app.State
	CreateBoard(context.Context, app.CreateBoardInput) (domain.Board, error)
	UpdateBoard(context.Context, app.UpdateBoardInput) (domain.Board, error)
	DeleteBoard(context.Context, string) error
	ChangeActiveBoard(context.Context, string) (domain.Board, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, error)
	SetTaskStatus(context.Context, string, string) (domain.Task, error)
	ToggleSubtask(context.Context, string, string) (domain.Task, error)
	ViewTask(context.Context, string) (domain.Task, error)
	DeleteTask(context.Context, string) error
	MoveTask(context.Context, app.TaskMove) (domain.Task, error)
	ToggleDarkMode(context.Context) (bool, error)
	ToggleSidePanel(context.Context) (bool, error)
}

// inputMode describes input mode.
type inputMode int

// modeNone and friends define the screens the model can be in.
const (
	modeNone inputMode = iota
	modeDetail
	modeTaskForm
	modeBoardForm
	modeConfirm
	modeDrag
)

// dragState tracks a keyboard drag from its source slot to the current drop target.
type dragState struct {
	taskID       string
	sourceColumn int
	sourceIndex  int
	targetColumn int
	targetIndex  int
}

// confirmKind selects what a confirmation prompt deletes.
type confirmKind int

const (
	confirmTask confirmKind = iota
	confirmBoard
)

// confirmState holds a pending delete.
type confirmState struct {
	kind       confirmKind
	id         string
	label      string
	returnMode inputMode
}

// Model is the bubbletea model for the board view.
type Model struct {
	svc           Service
	keys          keyMap
	help          help.Model
	markdown      *markdownRenderer
	clipboard     ClipboardWriter
	changes       <-chan struct{}
	confirmDelete bool

	ready  bool
	width  int
	height int
	err    error
	status string
	mode   inputMode

	state          app.State
	selectedColumn int
	selectedTask   int

	detailTaskID  string
	detailSubtask int
	drag          dragState
	confirm       confirmState
	taskForm      taskForm
	boardForm     boardForm
}

// stateLoadedMsg carries a state read from the service.
type stateLoadedMsg struct {
	state app.State
}

// changeMsg signals that the store committed a change.
type changeMsg struct{}

// changesClosedMsg signals that the change feed ended.
type changesClosedMsg struct{}

// actionMsg reports the outcome of one service call.
type actionMsg struct {
	err            error
	status         string
	focusTaskID    string
	resetSelection bool
}

// NewModel builds a board view over svc. Call Init to load the state.
func NewModel(svc Service, opts ...Option) Model {
	m := Model{
		svc:           svc,
		keys:          newKeyMap(),
		help:          help.New(),
		markdown:      &markdownRenderer{},
		clipboard:     systemClipboard,
		confirmDelete: true,
		status:        "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.changes == nil {
		return m.loadState
	}
	return tea.Batch(m.loadState, m.waitForChange())
}

// loadState reads the committed state from the service.
func (m Model) loadState() tea.Msg {
	return stateLoadedMsg{state: m.svc.Current()}
}

// waitForChange blocks until the store signals the next commit.
func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return changesClosedMsg{}
		}
		return changeMsg{}
	}
}

// Update routes messages by input mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateLoadedMsg:
		m.err = nil
		m.applyState(msg.state)
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case changeMsg:
		m.applyState(m.svc.Current())
		return m, m.waitForChange()

	case changesClosedMsg:
		m.changes = nil
		return m, nil

	case actionMsg:
		m.applyState(m.svc.Current())
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.resetSelection {
			m.selectedColumn = 0
			m.selectedTask = 0
		}
		if msg.focusTaskID != "" {
			m.focusTask(msg.focusTaskID)
		}
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeTaskForm:
			return m.handleTaskFormKey(msg)
		case modeBoardForm:
			return m.handleBoardFormKey(msg)
		case modeConfirm:
			return m.handleConfirmKey(msg)
		case modeDrag:
			return m.handleDragKey(msg)
		case modeDetail:
			return m.handleDetailKey(msg)
		default:
			return m.handleNormalModeKey(msg)
		}
	}
	return m, nil
}

// applyState installs a new state and keeps selections inside the visible board.
func (m *Model) applyState(state app.State) {
	m.state = state
	board, ok := state.ActiveBoard()
	if !ok {
		m.selectedColumn, m.selectedTask = 0, 0
		if m.mode == modeDetail || m.mode == modeDrag {
			m.mode = modeNone
		}
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(board.Columns)-1)
	m.selectedTask = clamp(m.selectedTask, 0, m.columnLen(m.selectedColumn)-1)

	switch m.mode {
	case modeDetail:
		if _, ok := m.detailTask(); !ok {
			m.mode = modeNone
			m.detailTaskID = ""
			m.status = "task no longer exists"
		}
	case modeDrag:
		if !m.dragSourceValid(board) {
			m.mode = modeNone
			m.drag = dragState{}
			m.status = "drag cancelled: board changed"
		}
	}
}

// handleNormalModeKey handles board navigation and actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloaded"
		return m, m.loadState
	case key.Matches(msg, m.keys.moveLeft):
		m.selectColumn(m.selectedColumn - 1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectColumn(m.selectedColumn + 1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask = clamp(m.selectedTask-1, 0, m.columnLen(m.selectedColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask = clamp(m.selectedTask+1, 0, m.columnLen(m.selectedColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.nextBoard):
		cmd := m.switchBoard(1)
		return m, cmd
	case key.Matches(msg, m.keys.prevBoard):
		cmd := m.switchBoard(-1)
		return m, cmd
	case key.Matches(msg, m.keys.toggleSide):
		return m, m.toggleSidePanel()
	case key.Matches(msg, m.keys.toggleTheme):
		return m, m.toggleTheme()
	case key.Matches(msg, m.keys.grabTask):
		m.startDrag()
		return m, nil
	case key.Matches(msg, m.keys.statusLeft):
		cmd := m.shiftTaskStatus(-1)
		return m, cmd
	case key.Matches(msg, m.keys.statusRight):
		cmd := m.shiftTaskStatus(1)
		return m, cmd
	case key.Matches(msg, m.keys.taskInfo):
		return m.openDetail()
	case key.Matches(msg, m.keys.addTask):
		return m.startTaskForm(nil, modeNone)
	case key.Matches(msg, m.keys.editTask):
		task, ok := m.selectedTaskValue()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		return m.startTaskForm(&task, modeNone)
	case key.Matches(msg, m.keys.newBoard):
		return m.startBoardForm(false)
	case key.Matches(msg, m.keys.editBoard):
		return m.startBoardForm(true)
	case key.Matches(msg, m.keys.deleteTask):
		return m.requestDeleteTask(modeNone)
	case key.Matches(msg, m.keys.deleteBoard):
		return m.requestDeleteBoard()
	}
	return m, nil
}

// handleDetailKey handles keys while a task is open.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	task, ok := m.detailTask()
	if !ok {
		m.mode = modeNone
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.back), msg.String() == "q":
		m.mode = modeNone
		m.detailTaskID = ""
		m.status = "ready"
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.moveUp):
		m.detailSubtask = clamp(m.detailSubtask-1, 0, len(task.Subtasks)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.detailSubtask = clamp(m.detailSubtask+1, 0, len(task.Subtasks)-1)
		return m, nil
	case key.Matches(msg, m.keys.toggleSubtask):
		if len(task.Subtasks) == 0 {
			m.status = "task has no subtasks"
			return m, nil
		}
		subtask := task.Subtasks[clamp(m.detailSubtask, 0, len(task.Subtasks)-1)]
		svc := m.svc
		return m, func() tea.Msg {
			updated, err := svc.ToggleSubtask(context.Background(), task.ID, subtask.ID)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("%d of %d subtasks done", updated.CompletedSubtasks(), len(updated.Subtasks))}
		}
	case key.Matches(msg, m.keys.copyTask):
		write := m.clipboard
		text := taskMarkdown(task)
		return m, func() tea.Msg {
			if err := write(text); err != nil {
				return actionMsg{err: fmt.Errorf("copy task: %w", err)}
			}
			return actionMsg{status: "copied task markdown"}
		}
	case key.Matches(msg, m.keys.editTask):
		return m.startTaskForm(&task, modeDetail)
	case key.Matches(msg, m.keys.deleteTask):
		return m.requestDeleteTask(modeDetail)
	}
	return m, nil
}

// handleDragKey handles keys while a task is grabbed.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	board, ok := m.state.ActiveBoard()
	if !ok {
		m.mode = modeNone
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = modeNone
		m.drag = dragState{}
		m.status = "drag cancelled"
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.moveLeft):
		m.drag.targetColumn = clamp(m.drag.targetColumn-1, 0, len(board.Columns)-1)
		m.drag.targetIndex = clamp(m.drag.targetIndex, 0, m.dropSlots(board, m.drag.targetColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.drag.targetColumn = clamp(m.drag.targetColumn+1, 0, len(board.Columns)-1)
		m.drag.targetIndex = clamp(m.drag.targetIndex, 0, m.dropSlots(board, m.drag.targetColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.drag.targetIndex = clamp(m.drag.targetIndex-1, 0, m.dropSlots(board, m.drag.targetColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.drag.targetIndex = clamp(m.drag.targetIndex+1, 0, m.dropSlots(board, m.drag.targetColumn)-1)
		return m, nil
	case key.Matches(msg, m.keys.taskInfo):
		return m.dropTask(board)
	}
	return m, nil
}

// handleConfirmKey resolves a pending delete.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		pending := m.confirm
		m.confirm = confirmState{}
		m.mode = modeNone
		if pending.kind == confirmBoard {
			return m, m.deleteBoard(pending.id, pending.label)
		}
		m.detailTaskID = ""
		return m, m.deleteTask(pending.id, pending.label)
	case "n", "N", "esc":
		m.mode = m.confirm.returnMode
		m.confirm = confirmState{}
		m.status = "delete cancelled"
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// selectColumn moves the column cursor and keeps the task cursor inside it.
func (m *Model) selectColumn(idx int) {
	board, ok := m.state.ActiveBoard()
	if !ok {
		return
	}
	m.selectedColumn = clamp(idx, 0, len(board.Columns)-1)
	m.selectedTask = clamp(m.selectedTask, 0, m.columnLen(m.selectedColumn)-1)
}

// columnLen returns the task count of a column on the active board.
func (m Model) columnLen(colIdx int) int {
	board, ok := m.state.ActiveBoard()
	if !ok || colIdx < 0 || colIdx >= len(board.Columns) {
		return 0
	}
	return len(board.Columns[colIdx].Tasks)
}

// selectedTaskValue returns the task under the cursor.
func (m Model) selectedTaskValue() (domain.Task, bool) {
	board, ok := m.state.ActiveBoard()
	if !ok || m.selectedColumn >= len(board.Columns) {
		return domain.Task{}, false
	}
	tasks := board.Columns[m.selectedColumn].Tasks
	if m.selectedTask < 0 || m.selectedTask >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.selectedTask], true
}

// detailTask returns the task shown in the detail view.
func (m Model) detailTask() (domain.Task, bool) {
	if m.detailTaskID == "" {
		return domain.Task{}, false
	}
	task, _, ok := m.state.Task(m.detailTaskID)
	return task, ok
}

// focusTask moves the cursor onto the task with id on the active board.
func (m *Model) focusTask(id string) {
	board, ok := m.state.ActiveBoard()
	if !ok {
		return
	}
	for colIdx, column := range board.Columns {
		for taskIdx, task := range column.Tasks {
			if task.ID == id {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return
			}
		}
	}
}

// switchBoard activates the board delta positions away from the active one.
func (m *Model) switchBoard(delta int) tea.Cmd {
	boards := m.state.Boards
	if len(boards) < 2 {
		m.status = "no other boards"
		return nil
	}
	current := 0
	for idx, board := range boards {
		if board.ID == m.state.ActiveBoardID {
			current = idx
			break
		}
	}
	next := boards[wrapIndex(current, delta, len(boards))]
	svc := m.svc
	return func() tea.Msg {
		board, err := svc.ChangeActiveBoard(context.Background(), next.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "board: " + board.Name, resetSelection: true}
	}
}

// toggleSidePanel flips side panel visibility in the store.
func (m Model) toggleSidePanel() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		open, err := svc.ToggleSidePanel(context.Background())
		if err != nil {
			return actionMsg{err: err}
		}
		if open {
			return actionMsg{status: "side panel shown"}
		}
		return actionMsg{status: "side panel hidden"}
	}
}

// toggleTheme flips dark mode in the store.
func (m Model) toggleTheme() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		dark, err := svc.ToggleDarkMode(context.Background())
		if err != nil {
			return actionMsg{err: err}
		}
		if dark {
			return actionMsg{status: "dark theme"}
		}
		return actionMsg{status: "light theme"}
	}
}

// shiftTaskStatus moves the selected task to the neighbouring column through a status change.
func (m *Model) shiftTaskStatus(delta int) tea.Cmd {
	board, ok := m.state.ActiveBoard()
	task, hasTask := m.selectedTaskValue()
	if !ok || !hasTask {
		m.status = "no task selected"
		return nil
	}
	target := m.selectedColumn + delta
	if target < 0 || target >= len(board.Columns) {
		m.status = "no column in that direction"
		return nil
	}
	status := board.Columns[target].Name
	svc := m.svc
	return func() tea.Msg {
		updated, err := svc.SetTaskStatus(context.Background(), task.ID, status)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("%s → %s", updated.Name, updated.Status), focusTaskID: updated.ID}
	}
}

// openDetail opens the selected task and records it as last viewed.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskValue()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	m.mode = modeDetail
	m.detailTaskID = task.ID
	m.detailSubtask = 0
	m.status = "task detail"
	svc := m.svc
	return m, func() tea.Msg {
		if _, err := svc.ViewTask(context.Background(), task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{}
	}
}

// startDrag grabs the selected task.
func (m *Model) startDrag() {
	task, ok := m.selectedTaskValue()
	if !ok {
		m.status = "no task selected"
		return
	}
	m.mode = modeDrag
	m.drag = dragState{
		taskID:       task.ID,
		sourceColumn: m.selectedColumn,
		sourceIndex:  m.selectedTask,
		targetColumn: m.selectedColumn,
		targetIndex:  m.selectedTask,
	}
	m.status = "dragging " + task.Name
}

// dropSlots returns how many drop positions a column offers for the grabbed task.
func (m Model) dropSlots(board domain.Board, colIdx int) int {
	if colIdx < 0 || colIdx >= len(board.Columns) {
		return 0
	}
	n := len(board.Columns[colIdx].Tasks)
	if colIdx == m.drag.sourceColumn {
		return n
	}
	return n + 1
}

// dragSourceValid reports whether the grabbed task still sits at its source slot.
func (m Model) dragSourceValid(board domain.Board) bool {
	if m.drag.sourceColumn < 0 || m.drag.sourceColumn >= len(board.Columns) {
		return false
	}
	tasks := board.Columns[m.drag.sourceColumn].Tasks
	if m.drag.sourceIndex < 0 || m.drag.sourceIndex >= len(tasks) {
		return false
	}
	return tasks[m.drag.sourceIndex].ID == m.drag.taskID
}

// dropTask emits one move for the grabbed task.
func (m Model) dropTask(board domain.Board) (tea.Model, tea.Cmd) {
	drag := m.drag
	m.mode = modeNone
	m.drag = dragState{}
	if drag.sourceColumn == drag.targetColumn && drag.sourceIndex == drag.targetIndex {
		m.status = "task dropped in place"
		return m, nil
	}
	move := app.TaskMove{
		TaskID:              drag.taskID,
		SourceColumnID:      board.Columns[drag.sourceColumn].ID,
		DestinationColumnID: board.Columns[drag.targetColumn].ID,
		SourceIndex:         drag.sourceIndex,
		DestinationIndex:    drag.targetIndex,
	}
	destination := board.Columns[drag.targetColumn].Name
	svc := m.svc
	return m, func() tea.Msg {
		task, err := svc.MoveTask(context.Background(), move)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("moved %s to %s", task.Name, destination), focusTaskID: task.ID}
	}
}

// requestDeleteTask deletes the focused task, asking first when confirmation is enabled.
func (m Model) requestDeleteTask(from inputMode) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTaskValue()
	if from == modeDetail {
		task, ok = m.detailTask()
	}
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	if !m.confirmDelete {
		m.mode = modeNone
		m.detailTaskID = ""
		return m, m.deleteTask(task.ID, task.Name)
	}
	m.mode = modeConfirm
	m.confirm = confirmState{kind: confirmTask, id: task.ID, label: task.Name, returnMode: from}
	return m, nil
}

// requestDeleteBoard deletes the active board, asking first when confirmation is enabled.
func (m Model) requestDeleteBoard() (tea.Model, tea.Cmd) {
	board, ok := m.state.ActiveBoard()
	if !ok {
		m.status = "no board selected"
		return m, nil
	}
	if !m.confirmDelete {
		return m, m.deleteBoard(board.ID, board.Name)
	}
	m.mode = modeConfirm
	m.confirm = confirmState{kind: confirmBoard, id: board.ID, label: board.Name, returnMode: modeNone}
	return m, nil
}

// deleteTask removes a task through the service.
func (m Model) deleteTask(id, name string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteTask(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted task " + name}
	}
}

// deleteBoard removes a board through the service.
func (m Model) deleteBoard(id, name string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteBoard(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "deleted board " + name, resetSelection: true}
	}
}

// taskMarkdown renders a task the way the copy action places it on the clipboard.
func taskMarkdown(task domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", task.Name)
	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	if desc := strings.TrimSpace(task.Description); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}
	if len(task.Subtasks) > 0 {
		fmt.Fprintf(&b, "\n## Subtasks (%d of %d)\n\n", task.CompletedSubtasks(), len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			mark := " "
			if subtask.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, subtask.Name)
		}
	}
	return b.String()
}

// wrapIndex steps current by delta, wrapping within [0, total).
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := current + delta
	for next < 0 {
		next += total
	}
	for next >= total {
		next -= total
	}
	return next
}

// clamp returns v bounded to [minV, maxV], or minV when the range is empty.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
