// Package ui provides terminal UI components for the hpgen CLI.
//
// Components follow a "run once and exit" pattern: they render styled
// output with Lipgloss but never wait for input, except ConfirmOverwrite.
//
// # Architecture
//
//   - Header: command banner showing operation name and parameters
//   - Progress: step list showing real-time status
//   - Result: success, warning and failure boxes with details and lists
//   - Dump: muted box of raw text or hex for verbose mode
//
// Runner orchestrates the header → steps → result flow for a command.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Hotpatch Generation",
//	    Command:   "hpgen generate",
//	    Params:    []ui.Param{{Key: "Firmware", Value: "fw.elf"}},
//	    StepNames: []string{"Load images", "Analyze", "Assemble", "Write blob"},
//	    Verbose:   verbose,
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) (*ui.Outcome, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "", ui.StepComplete, "2 images")
//	    return &ui.Outcome{}, nil
//	})
//
// # Logging Integration
//
// Logging is controlled by HPGEN_LOG_LEVEL. When unset, zap is silent and
// only the curated UI output is shown.
package ui
