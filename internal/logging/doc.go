// Package logging provides structured logging for hpgen.
//
// This package wraps a global zap logger with convenience functions for the
// events a hotpatch build produces: discovered patch-function sections,
// classified relocations, emitted records and non-fatal warnings.
//
// # Log Levels
//
//   - Debug: relocation classification, byte substitutions, hex dumps
//   - Info: discovered functions and emitted records
//   - Warn: unresolved relocations, incomplete call entries, skipped functions
//   - Error: failures that stop generation
//
// # Silent by Default
//
// hpgen writes its results to stdout, so logging is off unless a level is
// requested. Initialize("") reads HPGEN_LOG_LEVEL; when that is empty too a
// no-op logger is installed:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Log output goes to stderr so it never mixes with a blob written to stdout.
//
// # Specialized Logging
//
//	logging.LogSection(".text.hotpatch_function_foo_...", "foo", 64)
//	logging.LogRelocation("call", "bar", 0x10, 0x08002001, true)
//	logging.LogRecord("foo", "redirect", 0x08001004, 64, 0x10)
//	logging.LogWarning("foo", "unresolved_relocation", "baz", "relocation left unresolved")
//	logging.LogRawBytes("record code", code)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
