package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for one command run
type RunnerConfig struct {
	Title     string    // Command title (e.g., "Hotpatch Generation")
	Command   string    // Full command (e.g., "hpgen generate")
	Params    []Param   // Parameters to display in header
	StepNames []string  // Names for each step
	Verbose   bool      // Whether to show dumps after the result
	Output    io.Writer // Output writer (default: os.Stdout)
}

// Outcome is what an operation reports back to the Runner.
type Outcome struct {
	Details []Param
	Lists   []List
	// Warn renders a warning box instead of a success box.
	Warn bool
	// Dumps are shown after the result in verbose mode.
	Dumps []*Dump
}

// Operation is the work a Runner wraps. It reports progress through onStep.
type Operation func(ctx context.Context, onStep StepCallback) (*Outcome, error)

// Runner orchestrates header, per-step progress lines and the result box.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		progress: NewProgress("", config.StepNames).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// SetWidth overrides the detected terminal width.
func (r *Runner) SetWidth(width int) *Runner {
	r.width = width
	r.header.SetWidth(width)
	r.progress.SetWidth(width)
	return r
}

// Run prints the header, executes operation and prints the result. The
// operation's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	start := time.Now()

	fmt.Fprintln(r.output, r.header.Render())
	fmt.Fprintln(r.output)

	outcome, err := operation(ctx, r.stepCallback())
	duration := time.Since(start).Round(time.Millisecond)

	fmt.Fprintln(r.output)
	if outcome == nil {
		outcome = &Outcome{}
	}

	var result *Result
	switch {
	case err != nil:
		result = NewFailureResult(r.config.Title+" failed", err)
	case outcome.Warn:
		result = NewWarningResult(r.config.Title+" finished with warnings", outcome.Details)
	default:
		result = NewSuccessResult(r.config.Title+" complete", outcome.Details)
	}
	if err != nil {
		result.Details = outcome.Details
	}
	result.AddDetail("Duration", duration.String())
	for _, l := range outcome.Lists {
		result.AddList(l.Title, l.Items)
	}
	fmt.Fprintln(r.output, result.SetWidth(r.width).Render())

	if r.config.Verbose {
		for _, d := range outcome.Dumps {
			fmt.Fprintln(r.output)
			fmt.Fprintln(r.output, d.SetWidth(r.width).Render())
		}
	}

	return err
}

// stepCallback prints a line whenever a step starts or finishes. Running
// lines end in a carriage return so the finished line overwrites them.
func (r *Runner) stepCallback() StepCallback {
	return func(stepNumber int, name string, status StepStatus, message string) {
		if stepNumber < 1 || stepNumber > len(r.progress.Steps) {
			return
		}
		if name != "" {
			r.progress.Steps[stepNumber-1].Name = name
		}
		r.progress.UpdateStep(stepNumber, status, message)

		line := r.progress.renderStepLine(r.progress.Steps[stepNumber-1])
		switch status {
		case StepRunning:
			fmt.Fprint(r.output, line+"\r")
		case StepComplete, StepFailed, StepSkipped:
			fmt.Fprintln(r.output, line)
		}
	}
}
