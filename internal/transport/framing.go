package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// A session frame is a big-endian uint32 payload length followed by the
// payload. Zero-length payloads are never valid.
const (
	LengthPrefixSize = 4

	// DefaultMaxMessageSize caps a payload at 64 KiB unless the caller
	// picks another limit.
	DefaultMaxMessageSize = 64 * 1024
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")

	// ErrFrameTruncated means the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

func frameLimit(limit uint32) uint32 {
	if limit == 0 {
		return DefaultMaxMessageSize
	}
	return limit
}

func checkPayloadLen(n uint64, limit uint32) error {
	switch {
	case n == 0:
		return ErrMessageEmpty
	case n > uint64(limit):
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, n, limit)
	}
	return nil
}

// FrameWriter encodes frames onto w. Concurrent WriteFrame calls never
// interleave their bytes.
type FrameWriter struct {
	mu    sync.Mutex
	w     io.Writer
	limit uint32
}

// NewFrameWriter returns a writer refusing payloads above maxSize
// (0 means DefaultMaxMessageSize).
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, limit: frameLimit(maxSize)}
}

// WriteFrame sends data as one frame using a single Write call.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if err := checkPayloadLen(uint64(len(data)), fw.limit); err != nil {
		return err
	}

	frame := binary.BigEndian.AppendUint32(make([]byte, 0, LengthPrefixSize+len(data)), uint32(len(data)))
	frame = append(frame, data...)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// FrameReader decodes frames from r. It is not safe for concurrent use.
type FrameReader struct {
	r      io.Reader
	limit  uint32
	header [LengthPrefixSize]byte
}

// NewFrameReader returns a reader rejecting payloads above maxSize
// (0 means DefaultMaxMessageSize).
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, limit: frameLimit(maxSize)}
}

// ReadFrame returns the next payload. io.EOF means the peer closed between
// frames; ending anywhere inside a frame yields ErrFrameTruncated.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	switch _, err := io.ReadFull(fr.r, fr.header[:]); {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, ErrFrameTruncated
	case err != nil:
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(fr.header[:])
	if err := checkPayloadLen(uint64(n), fr.limit); err != nil {
		return nil, err
	}

	payload := make([]byte, n)
	switch _, err := io.ReadFull(fr.r, payload); {
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
		return nil, ErrFrameTruncated
	case err != nil:
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return payload, nil
}

// Framer reads and writes frames on one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}
