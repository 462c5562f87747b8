package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar selects the level when Initialize is given none.
// Unset means silent.
const LogLevelEnvVar = "AIO_LOG_LEVEL"

// maxDumpBytes caps hex and ASCII dumps attached to log entries.
const maxDumpBytes = 256

var current atomic.Pointer[zap.Logger]

// Initialize installs a console logger on stderr at level, falling back to
// $AIO_LOG_LEVEL. With neither set the logger is a no-op.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		SetLogger(nil)
		return nil
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l)
	return nil
}

// ParseLevel maps a level name (case-insensitive) to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", level)
}

// SetLogger replaces the process logger. nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// GetLogger returns the process logger.
func GetLogger() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// LogConnection records a session lifecycle event for a peer.
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogFrame records one session frame with hex and ASCII dumps. It is a
// no-op above debug level so callers need not guard it.
func LogFrame(remoteAddr string, direction string, data []byte) {
	l := GetLogger()
	if ce := l.Check(zapcore.DebugLevel, "Session frame"); ce != nil {
		ce.Write(
			zap.String("remote_addr", remoteAddr),
			zap.String("direction", direction),
			zap.Int("length", len(data)),
			zap.String("hex_dump", HexDump(data)),
			zap.String("ascii", ASCIIDump(data)),
		)
	}
}

// HexDump hex-encodes data, truncated to maxDumpBytes with a "..." suffix.
func HexDump(data []byte) string {
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

// ASCIIDump keeps printable bytes and replaces the rest with '.'.
func ASCIIDump(data []byte) string {
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Sync flushes buffered entries.
func Sync() {
	_ = GetLogger().Sync()
}
