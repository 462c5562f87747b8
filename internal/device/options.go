package device

import "time"

const (
	// DefaultDialTimeout bounds establishing the TCP connection.
	DefaultDialTimeout = 3 * time.Second

	// DefaultIOTimeout bounds each request/response exchange.
	DefaultIOTimeout = 5 * time.Second

	// DefaultRetryDelay is the first pause between dial attempts. It
	// doubles after each failure up to MaxRetryDelay.
	DefaultRetryDelay = 250 * time.Millisecond
	MaxRetryDelay     = 5 * time.Second
)

type options struct {
	name           string
	dialTimeout    time.Duration
	ioTimeout      time.Duration
	maxMessageSize uint32
	dialAttempts   int
	retryDelay     time.Duration
}

func defaultOptions() options {
	return options{
		dialTimeout:  DefaultDialTimeout,
		ioTimeout:    DefaultIOTimeout,
		dialAttempts: 1,
		retryDelay:   DefaultRetryDelay,
	}
}

// Option configures a Device.
type Option func(*options)

// WithName records the advertised device name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDialTimeout sets the connect timeout. Non-positive values keep the default.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithIOTimeout sets the per-exchange timeout. Non-positive values keep the default.
func WithIOTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ioTimeout = d
		}
	}
}

// WithMaxMessageSize caps the frame size accepted from the device.
func WithMaxMessageSize(n uint32) Option {
	return func(o *options) {
		o.maxMessageSize = n
	}
}

// WithDialRetries lets Connect redial up to retries more times when the
// dial fails with a retryable error (refused, timed out, reset). delay is
// the first backoff; non-positive means DefaultRetryDelay.
func WithDialRetries(retries int, delay time.Duration) Option {
	return func(o *options) {
		o.dialAttempts = max(retries, 0) + 1
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}
