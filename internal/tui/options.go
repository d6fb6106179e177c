package tui

import "github.com/atotto/clipboard"

// Option configures a Model.
type Option func(*Model)

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter func(string) error

// WithConfirmDelete toggles the confirmation prompt shown before deleting tasks and boards.
func WithConfirmDelete(enabled bool) Option {
	return func(m *Model) {
		m.confirmDelete = enabled
	}
}

// WithClipboard replaces the clipboard writer used by the copy action.
func WithClipboard(write ClipboardWriter) Option {
	return func(m *Model) {
		if write != nil {
			m.clipboard = write
		}
	}
}

// WithChanges subscribes the model to store change signals so edits from other surfaces redraw the board.
func WithChanges(changes <-chan struct{}) Option {
	return func(m *Model) {
		m.changes = changes
	}
}

// systemClipboard writes through the platform clipboard utility.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
