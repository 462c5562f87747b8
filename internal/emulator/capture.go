package emulator

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aio-mgr/aiomgr/internal/logging"
)

// FrameRecord is one captured session frame.
type FrameRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	RemoteAddr string    `json:"remote_addr"`
	Direction  string    `json:"direction"`
	Op         string    `json:"op,omitempty"`
	Length     int       `json:"length"`
	PayloadHex string    `json:"payload_hex"`
}

// captureWriter appends FrameRecords as JSON lines.
type captureWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

func newCaptureWriter(dir string) (*captureWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl",
		time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing session frames", zap.String("file", path))
	return &captureWriter{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the capture file path.
func (c *captureWriter) Path() string {
	return c.path
}

// Record appends one frame. Errors are logged, never returned.
func (c *captureWriter) Record(sessionID, remoteAddr, direction, op string, payload []byte) {
	rec := FrameRecord{
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		RemoteAddr: remoteAddr,
		Direction:  direction,
		Op:         op,
		Length:     len(payload),
		PayloadHex: hex.EncodeToString(payload),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return
	}
	if err := c.enc.Encode(rec); err != nil {
		logging.Error("Failed to write capture record",
			zap.String("file", c.path),
			zap.Error(err))
	}
}

// Close closes the capture file.
func (c *captureWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
