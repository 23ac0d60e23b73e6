package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// stepNameColumn is where the status marker starts.
const stepNameColumn = 45

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // Step description
	Status  StepStatus // Current status
	Message string     // Optional status message (e.g., "3 functions", "1,234 bytes")
}

// Progress represents a progress display with bar and step list
type Progress struct {
	Label     string  // e.g., "Assembling records..."
	Steps     []Step  // List of steps
	Current   int     // Current step (1-based)
	Total     int     // Total steps
	Percent   float64 // Progress percentage (0.0 - 1.0)
	Width     int     // Terminal width
	ShowBar   bool    // Whether to show progress bar
	ShowSteps bool    // Whether to show step list
	bar       progress.Model
}

// NewProgress creates a progress display with one pending step per name.
func NewProgress(label string, stepNames []string) *Progress {
	steps := make([]Step, len(stepNames))
	for i, name := range stepNames {
		steps[i] = Step{Number: i + 1, Name: name, Status: StepPending}
	}

	p := &Progress{
		Label:     label,
		Steps:     steps,
		Total:     len(steps),
		ShowBar:   true,
		ShowSteps: true,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width and resizes the bar to fit.
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // Leave room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Finished reports whether no step is pending or running.
func (p *Progress) Finished() bool {
	for _, s := range p.Steps {
		if s.Status == StepPending || s.Status == StepRunning {
			return false
		}
	}
	return true
}

// UpdateStep updates a specific step's status and optional message
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	idx := stepNumber - 1
	p.Steps[idx].Status = status
	p.Steps[idx].Message = message

	if status == StepRunning {
		p.Current = stepNumber
	} else if status != StepPending {
		completed := 0
		for _, s := range p.Steps {
			if s.Status == StepComplete || s.Status == StepSkipped {
				completed++
			}
		}
		p.Percent = float64(completed) / float64(p.Total)
	}
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

// StartStep marks a step as running
func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	// Label
	if p.Label != "" {
		b.WriteString(HeaderTitleStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	// Progress bar with percentage and step count
	if p.ShowBar {
		barLine := p.renderProgressBar()
		b.WriteString(barLine)
		b.WriteString("\n\n")
	}

	// Step list
	if p.ShowSteps {
		stepList := p.renderStepList()
		b.WriteString(stepList)
	}

	return b.String()
}

// renderProgressBar renders the progress bar line
func (p *Progress) renderProgressBar() string {
	// Get progress bar view
	barView := p.bar.ViewAs(p.Percent)

	// Calculate percentage display
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)

	// Step counter
	stepStr := fmt.Sprintf("[%d/%d]", p.Current, p.Total)

	// Combine: bar + percentage + step count
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, stepStr))
}

// renderStepList renders the list of steps
func (p *Progress) renderStepList() string {
	var lines []string

	for _, step := range p.Steps {
		lines = append(lines, p.renderStepLine(step))
	}

	return strings.Join(lines, "\n")
}

// stepStyle returns the marker and style for a step status.
func stepStyle(status StepStatus) (string, lipgloss.Style) {
	switch status {
	case StepComplete:
		return StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		return StepMarkerRunning, StepRunningStyle
	case StepFailed:
		return FailureMarker, ErrorTitleStyle
	case StepSkipped:
		return StepMarkerSkipped, StepPendingStyle
	default:
		return StepMarkerPending, StepPendingStyle
	}
}

// renderStepLine renders a single step line: "[n/total] name   marker (note)"
func (p *Progress) renderStepLine(step Step) string {
	marker, style := stepStyle(step.Status)

	padding := stepNameColumn - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, p.Total)
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback is the function signature for step progress updates.
// Commands call this to report progress. An empty name keeps the step's
// current name.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
