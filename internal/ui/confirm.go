package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmOverwrite shows a warning box for an existing output file and asks
// for confirmation on in. Only "y" or "yes" (any case) confirms; EOF or a
// read error declines.
func ConfirmOverwrite(path string, size int64, in io.Reader, out io.Writer) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  Output file exists", WarningMarker)),
		"",
		lipgloss.NewStyle().Foreground(TextColor).Render("   • " + path),
		lipgloss.NewStyle().Foreground(TextColor).Render(fmt.Sprintf("   • %d bytes will be replaced", size)),
		"",
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	fmt.Fprintln(out, box)
	fmt.Fprintln(out)
	fmt.Fprint(out, WarningTitleStyle.Render("Overwrite? [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		fmt.Fprintln(out)
		return true
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}
