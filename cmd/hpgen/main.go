// Hpgen builds hotpatch blobs for ARM Cortex-M firmware.
//
// It reads a relocatable patch object compiled with the hotpatch macros and
// the firmware executable it targets, resolves every patch function against
// the firmware symbol table, and writes the records a device-side runtime
// applies at boot.
//
// Usage:
//
//	hpgen generate --patch patch.o --firmware firmware.elf --output patch.bin
//
// See 'hpgen --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/hpgen/internal/logging"
	"github.com/muurk/hpgen/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "hpgen",
	Short: "ARM Cortex-M hotpatch generator",
	Long: `Build hotpatch blobs from a patch object and a firmware image.

Each patch function in the object names the firmware function it patches,
a byte offset into it and a patch type. hpgen resolves those names against
the firmware, fills in addresses, original-code snapshots, external call
stubs and branch-back trampolines, and writes one record per function.

Logging is silent unless --log-level or HPGEN_LOG_LEVEL is set.`,
	Version: version.Version,
	Example: `  # Build a blob
  hpgen generate --patch patch.o --firmware firmware.elf --output patch.bin

  # Show what the analyzer finds without assembling
  hpgen analyze --patch patch.o --firmware firmware.elf

  # Decode a blob
  hpgen inspect patch.bin`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hpgen %s\n", version.Full())
	},
}
