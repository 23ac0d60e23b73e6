package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/hpgen/internal/analyzer"
	"github.com/muurk/hpgen/internal/config"
	"github.com/muurk/hpgen/internal/hotpatch"
	"github.com/muurk/hpgen/internal/image"
	"github.com/muurk/hpgen/internal/logging"
	"github.com/muurk/hpgen/internal/ui"
)

// Command flags
var (
	patchPath    string
	firmwarePath string
	outputPath   string
	profilePath  string
	strict       bool
	maxCodeSize  int
	force        bool
	verbose      bool
)

// dumpLines caps each verbose code dump.
const dumpLines = 16

func init() {
	for _, c := range []*cobra.Command{generateCmd, analyzeCmd} {
		c.Flags().StringVarP(&patchPath, "patch", "p", "", "Patch object (ELF relocatable)")
		c.Flags().StringVarP(&firmwarePath, "firmware", "f", "", "Firmware image (ELF executable)")
		c.Flags().StringVarP(&profilePath, "config", "c", "", "Generation profile (default: user config directory)")
		_ = c.MarkFlagRequired("patch")
		_ = c.MarkFlagRequired("firmware")
	}

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// generateCmd implements the 'generate' command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build a hotpatch blob",
	Long: `Analyze every patch function in the patch object, assemble one record
per function and write the concatenated records to the output file.

Functions that cannot be resolved or assembled are skipped and listed.
With --strict (or generation.strict in the profile) any skipped function
fails the run and nothing is written.`,
	Example: `  hpgen generate -p patch.o -f firmware.elf -o patch.bin

  # Fail on any skipped function and cap records at the slot size
  hpgen generate -p patch.o -f firmware.elf --strict --max-code-size 512`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "hotpatch.bin", "Output blob")
	generateCmd.Flags().BoolVar(&strict, "strict", false, "Fail when any patch function is skipped")
	generateCmd.Flags().IntVar(&maxCodeSize, "max-code-size", 0, "Reject records with more code bytes (0 = unlimited)")
	generateCmd.Flags().BoolVar(&force, "force", false, "Overwrite the output file without asking")
	generateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show record code after the result")
}

// loadProfile reads the profile and applies command-line overrides.
func loadProfile(cmd *cobra.Command) (*config.Profile, hotpatch.Options, error) {
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, hotpatch.Options{}, err
	}
	opts := profile.Options()
	if cmd.Flags().Changed("strict") {
		opts.Strict = strict
	}
	if cmd.Flags().Changed("max-code-size") {
		if maxCodeSize < 0 {
			return nil, opts, fmt.Errorf("--max-code-size must not be negative")
		}
		opts.MaxCodeSize = maxCodeSize
	}
	return profile, opts, nil
}

// openImages opens the patch object and firmware image. The caller closes
// both on success.
func openImages() (*image.ELFFile, *image.ELFFile, error) {
	patch, err := image.Open(patchPath)
	if err != nil {
		return nil, nil, err
	}
	firmware, err := image.Open(firmwarePath)
	if err != nil {
		patch.Close()
		return nil, nil, err
	}
	return patch, firmware, nil
}

// confirmOutput decides whether an existing output file may be replaced.
func confirmOutput() error {
	info, err := os.Stat(outputPath)
	if err != nil || force {
		return nil
	}
	if !ui.IsTerminal(os.Stdin) {
		return fmt.Errorf("%s exists; use --force to overwrite", outputPath)
	}
	if !ui.ConfirmOverwrite(outputPath, info.Size(), os.Stdin, os.Stdout) {
		return errCancelled
	}
	return nil
}

var errCancelled = errors.New("cancelled")

func runGenerate(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	profile, opts, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	if err := confirmOutput(); err != nil {
		if errors.Is(err, errCancelled) {
			return nil
		}
		return err
	}

	limit := "unlimited"
	if opts.MaxCodeSize > 0 {
		limit = fmt.Sprintf("%d bytes", opts.MaxCodeSize)
	}
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Hotpatch Generation",
		Command: "hpgen generate",
		Params: []ui.Param{
			{Key: "Patch", Value: patchPath},
			{Key: "Firmware", Value: firmwarePath},
			{Key: "Output", Value: outputPath},
			{Key: "Strict", Value: fmt.Sprintf("%v", opts.Strict)},
			{Key: "Max code size", Value: limit},
		},
		StepNames: []string{
			"Load images",
			"Analyze patch functions",
			"Assemble records",
			"Write blob",
		},
		Verbose: verbose,
	})

	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (*ui.Outcome, error) {
		return generate(profile, opts, onStep)
	})
}

func generate(profile *config.Profile, opts hotpatch.Options, onStep ui.StepCallback) (*ui.Outcome, error) {
	onStep(1, "", ui.StepRunning, "")
	patch, firmware, err := openImages()
	if err != nil {
		onStep(1, "", ui.StepFailed, "")
		return nil, err
	}
	defer patch.Close()
	defer firmware.Close()
	onStep(1, "", ui.StepComplete, fmt.Sprintf("%d firmware symbols", len(firmware.Symbols())))

	onStep(2, "", ui.StepRunning, "")
	analysis, err := analyzer.New(patch, firmware, profile.Markers()).Analyze()
	if err != nil {
		onStep(2, "", ui.StepFailed, "")
		return nil, err
	}
	onStep(2, "", ui.StepComplete, fmt.Sprintf("%d resolved, %d skipped", len(analysis.Descriptors), len(analysis.Failures)))

	onStep(3, "", ui.StepRunning, "")
	res, err := hotpatch.NewGenerator(opts).GenerateFrom(analysis)
	outcome := generateOutcome(res)
	if err != nil {
		onStep(3, "", ui.StepFailed, "")
		onStep(4, "", ui.StepSkipped, "")
		return outcome, err
	}
	onStep(3, "", ui.StepComplete, fmt.Sprintf("%d records", len(res.Records)))

	onStep(4, "", ui.StepRunning, "")
	if err := os.WriteFile(outputPath, res.Blob, 0644); err != nil {
		onStep(4, "", ui.StepFailed, "")
		return outcome, fmt.Errorf("failed to write blob: %w", err)
	}
	onStep(4, "", ui.StepComplete, fmt.Sprintf("%d bytes", len(res.Blob)))

	logging.Info("Wrote hotpatch blob",
		zap.String("path", outputPath),
		zap.Int("records", len(res.Records)),
		zap.Int("bytes", len(res.Blob)),
	)

	outcome.Details = append([]ui.Param{{Key: "Output", Value: outputPath}}, outcome.Details...)
	return outcome, nil
}

// generateOutcome summarizes a generation result for the result box.
func generateOutcome(res *hotpatch.Result) *ui.Outcome {
	if res == nil {
		return nil
	}

	outcome := &ui.Outcome{
		Details: []ui.Param{
			{Key: "Records", Value: fmt.Sprintf("%d", len(res.Records))},
			{Key: "Blob size", Value: fmt.Sprintf("%d bytes", len(res.Blob))},
		},
		Warn: len(res.Warnings) > 0 || len(res.Skipped) > 0,
	}

	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, w.String())
	}
	var skipped []string
	for _, err := range res.Skipped {
		skipped = append(skipped, err.Error())
	}
	outcome.Lists = []ui.List{
		{Title: "Warnings", Items: warnings},
		{Title: "Skipped", Items: skipped},
	}

	for i, r := range res.Records {
		title := fmt.Sprintf("Record %d: %s %s at 0x%08x (%d bytes)",
			i, image.DisplayName(r.Function), r.Type, r.TargetAddress, len(r.Code))
		outcome.Dumps = append(outcome.Dumps, ui.NewHexDump(title, r.Code).SetMaxLines(dumpLines))
	}
	return outcome
}

// analyzeCmd implements the 'analyze' command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show patch functions as the analyzer sees them",
	Long: `Resolve every patch function against the firmware and print its target,
relocations, markers and original-code snapshot without assembling records.`,
	Example: `  hpgen analyze -p patch.o -f firmware.elf`,
	RunE:    runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return err
	}
	patch, firmware, err := openImages()
	if err != nil {
		return err
	}
	defer patch.Close()
	defer firmware.Close()

	res, err := analyzer.New(patch, firmware, profile.Markers()).Analyze()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(nil)
	if err := p.PrintHeader("Patch Analysis", "hpgen analyze", []ui.Param{
		{Key: "Patch", Value: patchPath},
		{Key: "Firmware", Value: firmwarePath},
	}); err != nil {
		return err
	}
	for _, d := range res.Descriptors {
		title := fmt.Sprintf("%s → 0x%08x", image.DisplayName(d.Name), d.TargetAddress())
		if err := p.PrintDump(ui.NewDump(title, describe(d))); err != nil {
			return err
		}
	}

	var failures []string
	for _, fe := range res.Failures {
		failures = append(failures, fe.Error())
	}
	result := ui.NewSuccessResult(fmt.Sprintf("%d patch functions", len(res.Descriptors)+len(res.Failures)), []ui.Param{
		{Key: "Resolved", Value: fmt.Sprintf("%d", len(res.Descriptors))},
		{Key: "Skipped", Value: fmt.Sprintf("%d", len(res.Failures))},
	})
	if len(failures) > 0 {
		result.Type = ui.ResultWarning
		result.AddList("Skipped", failures)
	}
	return p.PrintResult(result)
}

// describe renders one descriptor as plain text lines.
func describe(d *analyzer.Descriptor) string {
	var b strings.Builder

	kind := d.Tag
	if kind == "" {
		kind = "(none)"
	}
	fmt.Fprintf(&b, "section        %s\n", d.Section.Name)
	fmt.Fprintf(&b, "type           %s\n", kind)
	fmt.Fprintf(&b, "function       0x%08x + 0x%x\n", d.FunctionAddress, d.PatchOffset())
	if d.ReturnOffset != nil {
		fmt.Fprintf(&b, "return offset  0x%x\n", *d.ReturnOffset)
	}
	fmt.Fprintf(&b, "code           %d bytes\n", len(d.Code))
	fmt.Fprintf(&b, "original code  % x\n", d.OriginalCode)

	for _, r := range d.AddressRelocations {
		fmt.Fprintf(&b, "address   +0x%04x  %s\n", r.Offset(), describeRef(r))
	}
	for _, r := range d.CallRelocations {
		fmt.Fprintf(&b, "call      +0x%04x  %s\n", r.Offset(), describeRef(r))
	}
	for _, r := range d.DataRelocations {
		fmt.Fprintf(&b, "data      +0x%04x  %s %q\n", r.Relocation.Offset, r.Section, r.Data)
	}
	for _, r := range d.Unclassified {
		fmt.Fprintf(&b, "other     +0x%04x  %s\n", r.Offset, r.Name())
	}

	for _, m := range d.BranchBackMarkers {
		fmt.Fprintf(&b, "marker    +0x%04x  branch back (%s)\n", m.Value, m.Name)
	}
	for _, m := range d.ExternalCallMarkers {
		fmt.Fprintf(&b, "marker    +0x%04x  external calls (%s)\n", m.Value, m.Name)
	}
	if m := d.OriginalCodeMarker; m != nil {
		fmt.Fprintf(&b, "marker    +0x%04x  original code (%s)\n", m.Value, m.Name)
	}
	if r := d.ReturnFail; r != nil {
		fmt.Fprintf(&b, "marker    +0x%04x  return fail\n", r.Offset)
	}
	return b.String()
}

func describeRef(r analyzer.Reference) string {
	if !r.Resolved {
		return image.DisplayName(r.Name) + " (unresolved)"
	}
	return fmt.Sprintf("%s = 0x%08x", image.DisplayName(r.Name), r.Address)
}
