package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOnceModel is a Bubble Tea model that renders once and exits.
type RunOnceModel struct {
	content string
	width   int
	height  int
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	width, height := GetTerminalSize()
	return RunOnceModel{
		content: content,
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = size.Width, size.Height
	}
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content through Bubble Tea and exits immediately.
func RenderOnce(content string) error {
	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(os.Stdout), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Printer writes UI components to a writer. On a terminal stdout it goes
// through RenderOnce; anywhere else it writes plain rendered text.
type Printer struct {
	out   io.Writer
	width int
	tty   bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	tty := false
	if w == nil {
		w = os.Stdout
		tty = IsTerminal(os.Stdout)
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		tty:   tty,
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Print writes content followed by a newline.
func (p *Printer) Print(content string) error {
	if p.tty {
		return RenderOnce(content + "\n")
	}
	_, err := fmt.Fprintln(p.out, content)
	return err
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params []Param) error {
	return p.Print(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) error {
	return p.Print(r.SetWidth(p.width).Render())
}

// PrintDump prints a dump box
func (p *Printer) PrintDump(d *Dump) error {
	return p.Print(d.SetWidth(p.width).Render())
}
