package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() == true
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "deadline exceeded",
			err:           fmt.Errorf("read: %w", os.ErrDeadlineExceeded),
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "net timeout",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}},
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "connection refused",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "eof",
			err:           io.EOF,
			wantType:      ErrTypeClosed,
			wantRetryable: true,
		},
		{
			name:          "truncated frame",
			err:           ErrFrameTruncated,
			wantType:      ErrTypeClosed,
			wantRetryable: true,
		},
		{
			name:          "connection reset",
			err:           &net.OpError{Op: "read", Net: "tcp", Err: &os.SyscallError{Syscall: "read", Err: syscall.ECONNRESET}},
			wantType:      ErrTypeClosed,
			wantRetryable: true,
		},
		{
			name:          "oversized frame",
			err:           fmt.Errorf("%w: 70000 > 65536", ErrMessageTooLarge),
			wantType:      ErrTypeProtocol,
			wantRetryable: false,
		},
		{
			name:          "generic",
			err:           errors.New("something odd"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "read", "127.0.0.1:4000")
			if got == nil {
				t.Fatal("ClassifyNetworkError() = nil, want error")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if got := ClassifyNetworkError(nil, "read", ""); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestClassifyNetworkError_AlreadyClassified(t *testing.T) {
	orig := NewProtocolError("decode", "127.0.0.1:1", errors.New("bad"))
	wrapped := fmt.Errorf("send: %w", orig)
	if got := ClassifyNetworkError(wrapped, "read", ""); got != orig {
		t.Errorf("ClassifyNetworkError() should return the existing *Error")
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Type: ErrTypeTimeout, Op: "read", Addr: "10.0.0.5:7000", Err: os.ErrDeadlineExceeded}
	msg := e.Error()
	for _, want := range []string{"Timeout", "read", "10.0.0.5:7000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, should contain %q", msg, want)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	timeout := &Error{Type: ErrTypeTimeout, Retryable: true}
	closed := &Error{Type: ErrTypeClosed, Retryable: true}
	proto := NewProtocolError("decode", "", nil)

	if !IsTimeout(timeout) || IsTimeout(closed) {
		t.Error("IsTimeout misclassified")
	}
	if !IsClosed(closed) || IsClosed(proto) {
		t.Error("IsClosed misclassified")
	}
	if !IsRetryable(timeout) || IsRetryable(proto) {
		t.Error("IsRetryable misclassified")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unknown errors should not be retryable")
	}
	if !IsClosed(io.EOF) {
		t.Error("IsClosed(io.EOF) should be true")
	}
}

func TestErrorType_String(t *testing.T) {
	if got := ErrorType(99).String(); got != "ErrorType(99)" {
		t.Errorf("String() = %q, want ErrorType(99)", got)
	}
}
