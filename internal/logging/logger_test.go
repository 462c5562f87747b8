package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected silent logger when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestInitialize_UnknownLevel(t *testing.T) {
	defer SetLogger(nil)
	if err := Initialize("loud"); err == nil {
		t.Error("Initialize(\"loud\") should fail")
	}
}

func TestLogConnection(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogConnection("127.0.0.1:4000", "session_opened")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["remote_addr"] != "127.0.0.1:4000" {
		t.Errorf("remote_addr = %v, want 127.0.0.1:4000", fields["remote_addr"])
	}
	if fields["event"] != "session_opened" {
		t.Errorf("event = %v, want session_opened", fields["event"])
	}
}

func TestLogFrame_OnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("127.0.0.1:4000", "in", []byte{0x01, 0x02})
	if logs.Len() != 0 {
		t.Errorf("LogFrame logged %d entries at info level, want 0", logs.Len())
	}

	core, logs = observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))

	LogFrame("127.0.0.1:4000", "in", []byte{0x01, 0x02})
	if logs.Len() != 1 {
		t.Fatalf("LogFrame logged %d entries at debug level, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if got := fields["hex_dump"]; got != "0102" {
		t.Errorf("hex_dump = %v, want 0102", got)
	}
	if got := fields["ascii"]; got != ".." {
		t.Errorf("ascii = %v, want ..", got)
	}
}

func TestHexDump(t *testing.T) {
	if got := HexDump(nil); got != "" {
		t.Errorf("HexDump(nil) = %q, want empty", got)
	}
	long := make([]byte, 300)
	got := HexDump(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("HexDump of 300 bytes should be truncated, got length %d", len(got))
	}
	if len(got) != 2*maxDumpBytes+3 {
		t.Errorf("HexDump length = %d, want %d", len(got), 2*maxDumpBytes+3)
	}
}

func TestASCIIDump(t *testing.T) {
	got := ASCIIDump([]byte("ok\x00\x7f!"))
	if got != "ok..!" {
		t.Errorf("ASCIIDump() = %q, want %q", got, "ok..!")
	}
}
