package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/tavla/internal/domain"
)

// palette holds the colors of one theme.
type palette struct {
	accent color.Color
	text   color.Color
	muted  color.Color
	dim    color.Color
	danger color.Color
}

// Swatch is one named theme color. Value is a hex string or an ANSI 256 index.
type Swatch struct {
	Role  string
	Value string
}

var (
	darkSwatches = []Swatch{
		{Role: "accent", Value: "#635FC7"},
		{Role: "text", Value: "252"},
		{Role: "muted", Value: "245"},
		{Role: "dim", Value: "239"},
		{Role: "danger", Value: "#EA5555"},
	}
	lightSwatches = []Swatch{
		{Role: "accent", Value: "#635FC7"},
		{Role: "text", Value: "#000112"},
		{Role: "muted", Value: "#828FA3"},
		{Role: "dim", Value: "250"},
		{Role: "danger", Value: "#EA5555"},
	}
)

// ThemeSwatches returns the dark or light theme colors in display order.
func ThemeSwatches(dark bool) []Swatch {
	src := lightSwatches
	if dark {
		src = darkSwatches
	}
	out := make([]Swatch, len(src))
	copy(out, src)
	return out
}

// paletteFor returns the dark or light theme colors.
func paletteFor(dark bool) palette {
	colors := map[string]color.Color{}
	for _, swatch := range ThemeSwatches(dark) {
		colors[swatch.Role] = lipgloss.Color(swatch.Value)
	}
	return palette{
		accent: colors["accent"],
		text:   colors["text"],
		muted:  colors["muted"],
		dim:    colors["dim"],
		danger: colors["danger"],
	}
}

const (
	sidePanelWidth   = 24
	defaultColWidth  = 26
	defaultViewWidth = 120
)

// View renders the board, any open overlay and the help footer.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render builds the full screen content.
func (m Model) render() string {
	pal := paletteFor(m.state.DarkMode)
	width := m.width
	if width <= 0 {
		width = defaultViewWidth
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.text)
	statusStyle := lipgloss.NewStyle().Foreground(pal.muted)

	if m.err != nil {
		return titleStyle.Render("tavla") + "\n\n" +
			lipgloss.NewStyle().Foreground(pal.danger).Render("error: "+m.err.Error()) + "\n\n" +
			statusStyle.Render("press r to retry or q to quit")
	}

	header := titleStyle.Render("tavla")
	board, hasBoard := m.state.ActiveBoard()
	if hasBoard {
		header += "  " + lipgloss.NewStyle().Bold(true).Foreground(pal.accent).Render(board.Name)
	}
	header += statusStyle.Render("  [" + m.modeLabel() + "]")

	var body string
	switch {
	case len(m.state.Boards) == 0:
		body = m.renderEmpty(pal, "No boards yet", "Press N to create your first board.")
	case !hasBoard:
		body = m.renderEmpty(pal, "No board selected", "Press tab to pick a board.")
	case len(board.Columns) == 0:
		body = m.renderEmpty(pal, "This board has no columns", "Press M to add a column.")
	default:
		body = m.renderColumns(board, pal, width)
	}
	if m.state.SidePanelOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidePanel(pal), body)
	}

	sections := []string{header, "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		style := statusStyle
		if strings.HasPrefix(m.status, "error:") {
			style = lipgloss.NewStyle().Foreground(pal.danger)
		}
		sections = append(sections, style.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(pal.muted).
		BorderTop(true).
		BorderForeground(pal.dim).
		Padding(0, 1).
		Width(width).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	full := content + "\n" + helpLine

	if overlay := m.renderOverlay(pal, min(width-8, 72)); overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, width, max(1, height))
	}
	return full
}

// renderEmpty renders an empty state message.
func (m Model) renderEmpty(pal palette, title, hint string) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.NewStyle().Bold(true).Foreground(pal.muted).Render(title) + "\n" +
			lipgloss.NewStyle().Foreground(pal.accent).Render(hint),
	)
}

// renderSidePanel lists every board and marks the active one.
func (m Model) renderSidePanel(pal palette) string {
	lines := []string{
		lipgloss.NewStyle().Foreground(pal.muted).Render(fmt.Sprintf("ALL BOARDS (%d)", len(m.state.Boards))),
		"",
	}
	for _, board := range m.state.Boards {
		name := truncate(board.Name, sidePanelWidth-6)
		if board.ID == m.state.ActiveBoardID {
			lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(pal.accent).Render("● "+name))
			continue
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(pal.text).Render("○ "+name))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(pal.accent).Render("+ Create New Board (N)"))
	return lipgloss.NewStyle().
		Width(sidePanelWidth).
		Padding(0, 1).
		MarginRight(1).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(pal.dim).
		Render(strings.Join(lines, "\n"))
}

// renderColumns renders the active board's columns side by side.
func (m Model) renderColumns(board domain.Board, pal palette, width int) string {
	available := width
	if m.state.SidePanelOpen {
		available -= sidePanelWidth + 3
	}
	colWidth := defaultColWidth
	if n := len(board.Columns); n > 0 && available > 0 {
		colWidth = clamp(available/n-4, 16, 40)
	}
	baseStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)
	selectedStyle := baseStyle.BorderForeground(pal.accent)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.muted)

	views := make([]string, 0, len(board.Columns))
	for colIdx, column := range board.Columns {
		lines := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", column.Name, len(column.Tasks))), ""}
		lines = append(lines, m.renderCards(board, colIdx, pal, colWidth-2)...)
		style := baseStyle
		if colIdx == m.selectedColumn || (m.mode == modeDrag && colIdx == m.drag.targetColumn) {
			style = selectedStyle
		}
		views = append(views, style.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderCards renders the task cards of one column, including the drop marker while dragging.
func (m Model) renderCards(board domain.Board, colIdx int, pal palette, width int) []string {
	tasks := board.Columns[colIdx].Tasks
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.text)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.accent)
	subStyle := lipgloss.NewStyle().Foreground(pal.muted)
	ghostStyle := lipgloss.NewStyle().Foreground(pal.dim).Italic(true)
	dropStyle := lipgloss.NewStyle().Foreground(pal.accent)

	dragging := m.mode == modeDrag
	lines := make([]string, 0, len(tasks)*3+1)
	slot := 0
	dropLine := dropStyle.Render(strings.Repeat("┄", max(1, width-7)) + " drop")
	for taskIdx, task := range tasks {
		if dragging && colIdx == m.drag.sourceColumn && taskIdx == m.drag.sourceIndex {
			lines = append(lines, ghostStyle.Render("  "+truncate(task.Name, width-2)), "")
			continue
		}
		if dragging && colIdx == m.drag.targetColumn && slot == m.drag.targetIndex {
			lines = append(lines, dropLine, "")
		}
		slot++

		title := "  " + truncate(task.Name, width-2)
		if !dragging && colIdx == m.selectedColumn && taskIdx == m.selectedTask {
			title = selectedStyle.Render("▌ " + truncate(task.Name, width-2))
		} else {
			title = nameStyle.Render(title)
		}
		lines = append(lines, title, subStyle.Render(fmt.Sprintf("  %d of %d subtasks", task.CompletedSubtasks(), len(task.Subtasks))), "")
	}
	if dragging && colIdx == m.drag.targetColumn && slot == m.drag.targetIndex {
		lines = append(lines, dropLine)
	}
	if len(lines) == 0 {
		lines = append(lines, ghostStyle.Render("(empty)"))
	}
	return lines
}

// renderOverlay renders the modal for the current mode.
func (m Model) renderOverlay(pal palette, width int) string {
	width = max(width, 30)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.accent).
		Padding(1, 2).
		Width(width)
	title := lipgloss.NewStyle().Bold(true).Foreground(pal.text)
	hint := lipgloss.NewStyle().Foreground(pal.muted)
	danger := lipgloss.NewStyle().Foreground(pal.danger)

	switch m.mode {
	case modeDetail:
		return box.Render(m.renderDetail(pal, width-6))
	case modeTaskForm:
		form := m.taskForm
		heading := "Add New Task"
		if form.taskID != "" {
			heading = "Edit Task"
		}
		lines := []string{title.Render(heading), ""}
		for _, in := range form.inputs {
			lines = append(lines, in.View())
		}
		statusLine := "status: ‹ " + form.statuses[clamp(form.status, 0, len(form.statuses)-1)] + " ›"
		if form.focus == taskFieldStatus {
			statusLine = lipgloss.NewStyle().Foreground(pal.accent).Render(statusLine)
		}
		lines = append(lines, statusLine)
		if form.err != "" {
			lines = append(lines, "", danger.Render(form.err))
		}
		lines = append(lines, "", hint.Render("tab next field • enter save • esc cancel"))
		return box.Render(strings.Join(lines, "\n"))
	case modeBoardForm:
		form := m.boardForm
		heading := "Add New Board"
		if form.boardID != "" {
			heading = "Edit Board"
		}
		lines := []string{title.Render(heading), ""}
		for _, in := range form.inputs {
			lines = append(lines, in.View())
		}
		if form.err != "" {
			lines = append(lines, "", danger.Render(form.err))
		}
		lines = append(lines, "", hint.Render("tab next field • enter save • esc cancel"))
		return box.Render(strings.Join(lines, "\n"))
	case modeConfirm:
		var prompt string
		if m.confirm.kind == confirmBoard {
			prompt = fmt.Sprintf("Delete the %q board? This removes all of its columns and tasks.", m.confirm.label)
		} else {
			prompt = fmt.Sprintf("Delete the %q task and its subtasks?", m.confirm.label)
		}
		return box.BorderForeground(pal.danger).Render(
			danger.Bold(true).Render("Delete") + "\n\n" + prompt + "\n\n" + hint.Render("y confirm • n cancel"),
		)
	}
	if m.help.ShowAll {
		helpBubble := m.help
		helpBubble.SetWidth(width - 6)
		return box.Render(title.Render("Keys") + "\n\n" + helpBubble.View(m.keys))
	}
	return ""
}

// renderDetail renders the open task with its checklist.
func (m Model) renderDetail(pal palette, width int) string {
	task, ok := m.detailTask()
	if !ok {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(pal.text)
	muted := lipgloss.NewStyle().Foreground(pal.muted)
	lines := []string{title.Render(task.Name), muted.Render("status: " + task.Status), ""}
	if desc := m.markdown.render(task.Description, width, m.state.DarkMode); desc != "" {
		lines = append(lines, desc, "")
	}
	lines = append(lines, muted.Render(fmt.Sprintf("Subtasks (%d of %d)", task.CompletedSubtasks(), len(task.Subtasks))))
	for idx, subtask := range task.Subtasks {
		box := "[ ]"
		style := lipgloss.NewStyle().Foreground(pal.text)
		if subtask.Completed {
			box = "[x]"
			style = muted.Strikethrough(true)
		}
		line := box + " " + subtask.Name
		if idx == m.detailSubtask {
			line = lipgloss.NewStyle().Foreground(pal.accent).Render("› ") + style.Render(line)
		} else {
			line = "  " + style.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", muted.Render("space toggle • y copy • e edit • d delete • esc back"))
	return strings.Join(lines, "\n")
}

// modeLabel returns the short label shown in the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeDetail:
		return "task"
	case modeTaskForm:
		return "task form"
	case modeBoardForm:
		return "board form"
	case modeConfirm:
		return "confirm"
	case modeDrag:
		return "drag"
	default:
		return "board"
	}
}

// fitLines pads or cuts content to exactly maxLines rows.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		return overlay + "\n\n" + base
	}
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate shortens s to max cells, ending with an ellipsis when cut.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
