package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type    ResultType
	Title   string  // e.g., "3 records written"
	Details []Param // Key-value details to display
	Error   error   // Error (for failure results)

	// Lists are titled bullet lists rendered in an inner box, such as
	// assembly warnings or skipped functions.
	Lists []List

	Width int
}

// List is a titled bullet list inside a result box.
type List struct {
	Title string
	Items []string
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details []Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error) *Result {
	return &Result{
		Type:  ResultFailure,
		Title: title,
		Error: err,
		Width: GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details []Param) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// AddList appends a titled list. Empty lists are ignored.
func (r *Result) AddList(title string, items []string) *Result {
	if len(items) > 0 {
		r.Lists = append(r.Lists, List{Title: title, Items: items})
	}
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	var (
		label      string
		marker     string
		titleStyle lipgloss.Style
		color      lipgloss.Color
	)
	switch r.Type {
	case ResultFailure:
		label, marker, titleStyle, color = "FAILED", FailureMarker, ErrorTitleStyle, ErrorColor
	case ResultWarning:
		label, marker, titleStyle, color = "WARNING", WarningMarker, WarningTitleStyle, WarningColor
	default:
		label, marker, titleStyle, color = "SUCCESS", SuccessMarker, SuccessTitleStyle, SuccessColor
	}

	lines := []string{
		"",
		titleStyle.Render(fmt.Sprintf("   %s  %s  ─  %s", marker, label, r.Title)),
		"",
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", d.Key))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	for _, l := range r.Lists {
		lines = append(lines, renderListBox(l, width), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width - 2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// renderListBox renders the inner bullet list box
func renderListBox(l List, width int) string {
	lines := []string{ListTitleStyle.Render(l.Title + ":"), ""}
	for _, item := range l.Items {
		lines = append(lines, ListItemStyle.Render("  • "+item))
	}

	innerWidth := width - 12 // Indent within outer box
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
