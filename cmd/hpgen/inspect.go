package main

import (
	"debug/elf"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/hpgen/internal/hotpatch"
	"github.com/muurk/hpgen/internal/image"
	"github.com/muurk/hpgen/internal/thumb"
	"github.com/muurk/hpgen/internal/ui"
)

var (
	inspectFirmware string
	inspectLines    int
	rawAddresses    bool
)

func init() {
	inspectCmd.Flags().StringVarP(&inspectFirmware, "firmware", "f", "", "Firmware image used to name record targets")
	inspectCmd.Flags().IntVar(&inspectLines, "lines", dumpLines, "Hex dump lines per record (0 = all)")

	encodeBranchCmd.Flags().BoolVar(&rawAddresses, "raw", false, "Use the addresses as given; a source with bit 0 clear is rejected")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(encodeBranchCmd)
}

// inspectCmd implements the 'inspect' command
var inspectCmd = &cobra.Command{
	Use:   "inspect <blob>",
	Short: "Decode and print the records of a hotpatch blob",
	Example: `  hpgen inspect patch.bin

  # Name each target from the firmware symbol table
  hpgen inspect patch.bin -f firmware.elf`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	records, parseErr := hotpatch.ParseBlob(data)

	var firmware *image.ELFFile
	if inspectFirmware != "" {
		firmware, err = image.Open(inspectFirmware)
		if err != nil {
			return err
		}
		defer firmware.Close()
	}

	p := ui.NewPrinter(nil)
	params := []ui.Param{{Key: "Blob", Value: fmt.Sprintf("%s (%d bytes)", args[0], len(data))}}
	if firmware != nil {
		params = append(params, ui.Param{Key: "Firmware", Value: inspectFirmware})
	}
	if err := p.PrintHeader("Hotpatch Blob", "hpgen inspect", params); err != nil {
		return err
	}

	for i, r := range records {
		target := fmt.Sprintf("0x%08x", r.TargetAddress)
		if firmware != nil {
			if name, ok := symbolFor(firmware, r.TargetAddress); ok {
				target += " " + name
			}
		}
		title := fmt.Sprintf("Record %d: %s at %s (%d bytes)", i, r.Type, target, len(r.Code))
		if err := p.PrintDump(ui.NewHexDump(title, r.Code).SetMaxLines(inspectLines)); err != nil {
			return err
		}
	}

	if parseErr != nil {
		if err := p.PrintResult(ui.NewFailureResult(fmt.Sprintf("%d records decoded", len(records)), parseErr)); err != nil {
			return err
		}
		return parseErr
	}

	total := 0
	for _, r := range records {
		total += r.Size()
	}
	return p.PrintResult(ui.NewSuccessResult(fmt.Sprintf("%d records", len(records)), []ui.Param{
		{Key: "Decoded", Value: fmt.Sprintf("%d of %d bytes", total, len(data))},
	}))
}

// symbolFor names the firmware function containing addr as "name+0xoff".
func symbolFor(f image.Reader, addr uint32) (string, bool) {
	var best image.Symbol
	found := false
	for _, s := range f.Symbols() {
		if s.Type != elf.STT_FUNC || !s.HasSection() {
			continue
		}
		start := s.Value &^ 1
		if start > addr || (s.Size > 0 && addr >= start+s.Size) {
			continue
		}
		if !found || start > best.Value&^1 {
			best, found = s, true
		}
	}
	if !found {
		return "", false
	}
	name := image.DisplayName(best.Name)
	if off := addr - best.Value&^1; off != 0 {
		name += fmt.Sprintf("+0x%x", off)
	}
	return name, true
}

// encodeBranchCmd implements the 'encode-branch' command
var encodeBranchCmd = &cobra.Command{
	Use:   "encode-branch <source> <target>",
	Short: "Print the Thumb-2 BL encoding between two addresses",
	Long: `Encode a Thumb-2 long branch-with-link from source to target, the way
the generator patches local call sites. Addresses accept 0x, 0o and 0b
prefixes. Bit 0 is set on both addresses unless --raw is given.`,
	Example: `  hpgen encode-branch 0x18 0x34`,
	Args:    cobra.ExactArgs(2),
	RunE:    runEncodeBranch,
}

func runEncodeBranch(cmd *cobra.Command, args []string) error {
	source, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	target, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	if !rawAddresses {
		source |= 1
		target |= 1
	}

	word, err := thumb.EncodeLongBranch(source, target)
	if err != nil {
		return err
	}
	offset, _ := thumb.DecodeLongBranch(word)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source   0x%08x\n", source)
	fmt.Fprintf(out, "target   0x%08x\n", target)
	fmt.Fprintf(out, "offset   %d (0x%x)\n", offset, uint32(offset))
	fmt.Fprintf(out, "word     0x%08x\n", word)
	fmt.Fprintf(out, "halves   0x%04x 0x%04x\n", word&0xFFFF, word>>16)
	fmt.Fprintf(out, "bytes    %02x %02x %02x %02x\n", byte(word), byte(word>>8), byte(word>>16), byte(word>>24))
	return nil
}

func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}
