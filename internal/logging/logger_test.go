package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	prev := logger
	defer func() { logger = prev }()

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is set")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	prev := logger
	defer func() { logger = prev }()

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogRecord(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogRecord("foo", "redirect", 0x08001004, 64, 0x10)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["target_address"] != "0x08001004" {
		t.Errorf("target_address = %v, want 0x08001004", fields["target_address"])
	}
	if fields["return_offset"] != "0x00000010" {
		t.Errorf("return_offset = %v, want 0x00000010", fields["return_offset"])
	}
	if fields["function"] != "foo" {
		t.Errorf("function = %v, want foo", fields["function"])
	}
}

func TestLogRelocation_UnresolvedHasNoAddress(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogRelocation("call", "local_helper", 0x20, 0, false)

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["address"]; ok {
		t.Error("unresolved relocation should not log an address")
	}
	if fields["resolved"] != false {
		t.Errorf("resolved = %v, want false", fields["resolved"])
	}
}

func TestLogWarning(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	LogWarning("foo", "incomplete_call_entry", "bar", "call entry skipped")

	entries := logs.FilterMessage("call entry skipped").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}

func TestHexDump(t *testing.T) {
	if got := HexDump([]byte{0xDF, 0xF8, 0x00, 0xF0}); got != "dff800f0" {
		t.Errorf("HexDump() = %q", got)
	}
	if got := HexDump(nil); got != "" {
		t.Errorf("HexDump(nil) = %q, want empty", got)
	}

	long := make([]byte, 300)
	got := HexDump(long)
	if !strings.HasSuffix(got, "...") || len(got) != 2*256+3 {
		t.Errorf("HexDump(300 bytes) length = %d, want %d", len(got), 2*256+3)
	}
}

func TestASCIIDump(t *testing.T) {
	if got := ASCIIDump([]byte("hi\x00\x7f!")); got != "hi..!" {
		t.Errorf("ASCIIDump() = %q, want %q", got, "hi..!")
	}
	if got := ASCIIDump(make([]byte, 300)); len(got) != 256 {
		t.Errorf("len(ASCIIDump(300 bytes)) = %d, want 256", len(got))
	}
}
