package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorType represents the category of transport error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a generic network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a deadline was exceeded
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the peer refused the connection
	ErrTypeConnectionRefused
	// ErrTypeClosed indicates the peer or the local side closed the connection
	ErrTypeClosed
	// ErrTypeProtocol indicates framing or decoding failed
	ErrTypeProtocol
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeClosed:
		return "Connection Closed"
	case ErrTypeProtocol:
		return "Protocol Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a classified transport failure.
type Error struct {
	Type      ErrorType // Category of error
	Op        string    // Operation that failed ("dial", "read", "write", ...)
	Addr      string    // Remote address (for context)
	Err       error     // Underlying error
	Retryable bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Type.String()
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Addr != "" {
		msg += " (" + e.Addr + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes err and returns a classified *Error.
// Returns nil for a nil error; an *Error is returned unchanged.
func ClassifyNetworkError(err error, op, addr string) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, ErrMessageEmpty) || errors.Is(err, ErrMessageTooLarge) {
		return &Error{Type: ErrTypeProtocol, Op: op, Addr: addr, Err: err}
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Op: op, Addr: addr, Err: err, Retryable: true}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, ErrFrameTruncated) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return &Error{Type: ErrTypeClosed, Op: op, Addr: addr, Err: err, Retryable: true}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Type: ErrTypeConnectionRefused, Op: op, Addr: addr, Err: err, Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Type: ErrTypeTimeout, Op: op, Addr: addr, Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeNetwork, Op: op, Addr: addr, Err: err, Retryable: true}
}

// NewProtocolError creates a non-retryable protocol error
func NewProtocolError(op, addr string, err error) *Error {
	return &Error{Type: ErrTypeProtocol, Op: op, Addr: addr, Err: err}
}

// IsTimeout checks if an error is a timeout
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeTimeout
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsClosed checks if an error reports a closed connection
func IsClosed(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrTypeClosed
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}
