package logging

import (
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "HPGEN_LOG_LEVEL"

// maxDumpBytes caps hex and ascii dumps.
const maxDumpBytes = 256

// Initialize creates a new logger with the specified level.
// If level is empty, it checks HPGEN_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the HPGEN_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Hex formats a 32-bit address or offset as a zap field.
func Hex(key string, v uint32) zap.Field {
	return zap.String(key, fmt.Sprintf("0x%08x", v))
}

// LogSection logs a discovered patch-function section
func LogSection(name string, function string, size uint32) {
	Info("Patch function section",
		zap.String("section", name),
		zap.String("function", function),
		zap.Uint32("size", size),
	)
}

// LogRelocation logs one classified relocation. address is only meaningful
// when resolved is true.
func LogRelocation(class string, name string, offset uint32, address uint32, resolved bool) {
	fields := []zap.Field{
		zap.String("class", class),
		zap.String("symbol", name),
		Hex("offset", offset),
		zap.Bool("resolved", resolved),
	}
	if resolved {
		fields = append(fields, Hex("address", address))
	}
	Debug("Relocation", fields...)
}

// LogRecord logs an emitted hotpatch record
func LogRecord(function string, patchType string, target uint32, codeLen int, returnOffset uint32) {
	Info("Hotpatch record",
		zap.String("function", function),
		zap.String("type", patchType),
		Hex("target_address", target),
		zap.Int("code_length", codeLen),
		Hex("return_offset", returnOffset),
	)
}

// LogWarning logs a non-fatal generation warning
func LogWarning(function string, kind string, symbol string, msg string) {
	Warn(msg,
		zap.String("function", function),
		zap.String("kind", kind),
		zap.String("symbol", symbol),
	)
}

// LogRawBytes logs raw bytes (useful for checking generated code)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", HexDump(data)),
		zap.String("ascii", ASCIIDump(data)),
	)
}

// HexDump returns data hex encoded, truncated after 256 bytes.
func HexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

// ASCIIDump returns printable bytes as-is and everything else as '.',
// truncated after 256 bytes.
func ASCIIDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
