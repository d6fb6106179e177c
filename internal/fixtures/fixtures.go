// Package fixtures embeds the default board set used to seed an empty store.
package fixtures

import _ "embed"

//go:embed boards.json
var boardsJSON []byte

// Boards returns a copy of the embedded seed payload.
func Boards() []byte {
	out := make([]byte, len(boardsJSON))
	copy(out, boardsJSON)
	return out
}
