package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// minMarkdownWrap keeps narrow terminals from wrapping descriptions one word per line.
const minMarkdownWrap = 24

type rendererKey struct {
	width int
	dark  bool
}

// markdownRenderer renders task descriptions, keeping one glamour renderer per wrap width and theme.
type markdownRenderer struct {
	renderers map[rendererKey]*glamour.TermRenderer
}

// render returns description as styled terminal text. Renderer failures fall back to the raw text.
func (r *markdownRenderer) render(description string, width int, dark bool) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	tr, ok := r.rendererFor(rendererKey{width: max(width, minMarkdownWrap), dark: dark})
	if !ok {
		return description
	}
	out, err := tr.Render(description)
	if err != nil {
		return description
	}
	return strings.TrimSpace(out)
}

func (r *markdownRenderer) rendererFor(key rendererKey) (*glamour.TermRenderer, bool) {
	if tr, ok := r.renderers[key]; ok {
		return tr, true
	}
	style := styles.LightStyle
	if key.dark {
		style = styles.DarkStyle
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(key.width),
	)
	if err != nil {
		return nil, false
	}
	if r.renderers == nil {
		r.renderers = map[rendererKey]*glamour.TermRenderer{}
	}
	r.renderers[key] = tr
	return tr, true
}
