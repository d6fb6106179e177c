package tui

import "charm.land/bubbles/v2/key"

// keyMap lists the bindings shown in help.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	nextBoard     key.Binding
	prevBoard     key.Binding
	toggleSide    key.Binding
	toggleTheme   key.Binding
	grabTask      key.Binding
	statusLeft    key.Binding
	statusRight   key.Binding
	taskInfo      key.Binding
	addTask       key.Binding
	editTask      key.Binding
	newBoard      key.Binding
	editBoard     key.Binding
	deleteTask    key.Binding
	deleteBoard   key.Binding
	toggleSubtask key.Binding
	copyTask      key.Binding
	back          key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		nextBoard:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next board")),
		prevBoard:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous board")),
		toggleSide:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "side panel")),
		toggleTheme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "light/dark")),
		grabTask:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "drag task")),
		statusLeft:    key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "status left")),
		statusRight:   key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "status right")),
		taskInfo:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "task detail")),
		addTask:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		editTask:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		newBoard:      key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new board")),
		editBoard:     key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "edit board")),
		deleteTask:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		deleteBoard:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete board")),
		toggleSubtask: key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "toggle subtask")),
		copyTask:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy markdown")),
		back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.taskInfo, k.grabTask, k.nextBoard, k.toggleSide, k.toggleTheme, k.toggleHelp, k.quit,
	}
}

// FullHelp returns the expanded help columns.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.nextBoard, k.prevBoard},
		{k.addTask, k.editTask, k.taskInfo, k.grabTask, k.statusLeft, k.statusRight, k.deleteTask},
		{k.newBoard, k.editBoard, k.deleteBoard, k.toggleSide, k.toggleTheme, k.reload, k.toggleHelp, k.quit},
		{k.toggleSubtask, k.copyTask, k.back},
	}
}
