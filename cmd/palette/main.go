// Command palette previews the board theme colors next to the ANSI 256 palette they are picked from.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hylla/tavla/internal/tui"
)

func main() {
	fs := flag.NewFlagSet("palette", flag.ExitOnError)
	showANSI := fs.Bool("ansi", false, "also print the ANSI 256 color grid")
	_ = fs.Parse(os.Args[1:])
	render(os.Stdout, *showANSI)
}

// render writes the theme table and, optionally, the ANSI grid.
func render(w io.Writer, showANSI bool) {
	_, _ = fmt.Fprintln(w, "=== THEMES ===")
	_, _ = fmt.Fprintln(w, themeTable().Render())
	if showANSI {
		_, _ = fmt.Fprintln(w, "\n=== ANSI 256 ===")
		writeColorBlock(w, 0, 15, 8)
		_, _ = fmt.Fprintln(w)
		for i := 0; i < 6; i++ {
			writeColorBlock(w, 16+i*36, 16+(i+1)*36-1, 6)
		}
		_, _ = fmt.Fprintln(w)
		writeColorBlock(w, 232, 255, 12)
	}
}

// themeTable lines up the light and dark value of every theme role.
func themeTable() *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("Role", "Light", "Dark", "Sample").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	light := tui.ThemeSwatches(false)
	dark := tui.ThemeSwatches(true)
	for i := range light {
		t.Row(light[i].Role, light[i].Value, dark[i].Value, swatch(light[i].Value)+" "+swatch(dark[i].Value))
	}
	return t
}

// swatch renders value as a labelled color block.
func swatch(value string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(value)).
		Foreground(contrastColor(value)).
		Width(10).
		Align(lipgloss.Center).
		Render(value)
}

func writeColorBlock(w io.Writer, start, end, perRow int) {
	var b strings.Builder
	count := 0
	for i := start; i <= end; i++ {
		value := strconv.Itoa(i)
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(value)).
			Foreground(contrastColor(value)).
			Width(6).
			Align(lipgloss.Center).
			Render(fmt.Sprintf("%3d", i)))
		count++
		if count%perRow == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	if count%perRow != 0 {
		b.WriteString("\n")
	}
	_, _ = io.WriteString(w, b.String())
}

// contrastColor picks black or white text for a background given as hex or ANSI index.
func contrastColor(value string) lipgloss.Color {
	if r, g, b, ok := parseHex(value); ok {
		// Rec. 601 luma.
		if (299*r+587*g+114*b)/1000 > 140 {
			return lipgloss.Color("0")
		}
		return lipgloss.Color("15")
	}
	idx, err := strconv.Atoi(value)
	if err != nil {
		return lipgloss.Color("15")
	}
	switch {
	case idx < 16:
		if idx == 0 || idx == 1 || idx == 4 || idx == 5 || idx == 8 {
			return lipgloss.Color("15")
		}
		return lipgloss.Color("0")
	case idx >= 232:
		if idx < 244 {
			return lipgloss.Color("15")
		}
		return lipgloss.Color("0")
	default:
		return lipgloss.Color("15")
	}
}

func parseHex(value string) (int, int, int, bool) {
	if len(value) != 7 || value[0] != '#' {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(value[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff), true
}
