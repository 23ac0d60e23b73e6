package ui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dump is a muted box of raw text, used in verbose mode for record code
// and descriptor listings.
type Dump struct {
	Title    string
	Lines    []string
	Width    int
	MaxLines int // Maximum lines to display (0 = unlimited)
}

// NewDump creates a dump box for content.
func NewDump(title, content string) *Dump {
	return &Dump{
		Title: title,
		Lines: strings.Split(strings.TrimRight(content, "\n"), "\n"),
		Width: GetTerminalWidth(),
	}
}

// NewHexDump creates a dump box with a canonical hex listing of data.
func NewHexDump(title string, data []byte) *Dump {
	return NewDump(title, hex.Dump(data))
}

// SetWidth sets the terminal width for responsive rendering
func (d *Dump) SetWidth(width int) *Dump {
	d.Width = width
	return d
}

// SetMaxLines limits the number of lines displayed
func (d *Dump) SetMaxLines(max int) *Dump {
	d.MaxLines = max
	return d
}

// Render returns the styled dump box as a string
func (d *Dump) Render() string {
	width := clampWidth(d.Width)

	lines := d.Lines
	if d.MaxLines > 0 && len(lines) > d.MaxLines {
		hidden := len(lines) - d.MaxLines
		lines = append(lines[:d.MaxLines:d.MaxLines], fmt.Sprintf("... (%d more lines)", hidden))
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		DumpTitleStyle.Render(d.Title),
		"",
		DumpContentStyle.Render(strings.Join(lines, "\n")),
	)

	boxWidth := width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(boxWidth).
		Padding(0, 1).
		MarginLeft(2).
		Render(inner)
}

// String implements fmt.Stringer
func (d *Dump) String() string {
	return d.Render()
}
