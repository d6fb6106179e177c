package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// TestKeyMapMatchesKeyPresses verifies bindings resolve the key presses the model receives.
func TestKeyMapMatchesKeyPresses(t *testing.T) {
	km := newKeyMap()
	cases := []struct {
		name    string
		msg     tea.KeyPressMsg
		binding key.Binding
	}{
		{name: "grab", msg: keyRune('m'), binding: km.grabTask},
		{name: "new board", msg: keyRune('N'), binding: km.newBoard},
		{name: "edit board", msg: keyRune('M'), binding: km.editBoard},
		{name: "delete board", msg: keyRune('X'), binding: km.deleteBoard},
		{name: "status left", msg: keyRune('<'), binding: km.statusLeft},
		{name: "status right", msg: keyRune('>'), binding: km.statusRight},
		{name: "next board", msg: tea.KeyPressMsg{Code: tea.KeyTab}, binding: km.nextBoard},
		{name: "previous board", msg: tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}, binding: km.prevBoard},
		{name: "detail", msg: tea.KeyPressMsg{Code: tea.KeyEnter}, binding: km.taskInfo},
		{name: "toggle subtask", msg: tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}, binding: km.toggleSubtask},
		{name: "arrow left", msg: tea.KeyPressMsg{Code: tea.KeyLeft}, binding: km.moveLeft},
		{name: "back", msg: tea.KeyPressMsg{Code: tea.KeyEscape}, binding: km.back},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !key.Matches(tc.msg, tc.binding) {
				t.Fatalf("expected %q to match %v", tc.msg.String(), tc.binding.Keys())
			}
		})
	}
	if key.Matches(keyRune('n'), km.newBoard) {
		t.Fatalf("lowercase n must not open the board form")
	}
}

// TestKeyMapHelpCoversBindings verifies every binding is reachable from the full help view.
func TestKeyMapHelpCoversBindings(t *testing.T) {
	km := newKeyMap()
	seen := map[string]bool{}
	for _, group := range km.FullHelp() {
		for _, b := range group {
			if b.Help().Key == "" || b.Help().Desc == "" {
				t.Fatalf("binding %v is missing help text", b.Keys())
			}
			seen[b.Help().Desc] = true
		}
	}
	for _, b := range km.ShortHelp() {
		if !seen[b.Help().Desc] {
			t.Fatalf("short help binding %q missing from full help", b.Help().Desc)
		}
	}
	if len(seen) != 24 {
		t.Fatalf("expected 24 documented bindings, got %d", len(seen))
	}
}
