package transport

import "github.com/cadencelab/tempolink/pkg/logger"

// Option applies a configuration option to the Transport.
type Option func(*Transport)

// WithHost sets the bind host.
func WithHost(host string) Option {
	return func(t *Transport) {
		if host != "" {
			t.host = host
		}
	}
}

// WithPort sets the bind port. Zero asks the kernel for an ephemeral
// port; Addr reports the one chosen.
func WithPort(port int) Option {
	return func(t *Transport) {
		if port >= 0 {
			t.port = port
		}
	}
}

// WithDebug toggles verbose per-packet logging.
func WithDebug(debug bool) Option {
	return func(t *Transport) {
		t.debug = debug
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}
