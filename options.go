package persistentws

import (
	"log/slog"
	"time"

	"github.com/rickgao/persistent-ws/transport"
)

// DefaultWaitInterval is the delay before a reconnect when none is configured.
const DefaultWaitInterval = 10 * time.Second

// Option configures a Client.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	dialer          transport.Dialer
	waitInterval    time.Duration
	maxWaitInterval time.Duration
}

// WithWaitInterval sets the delay before reconnecting after a failure.
func WithWaitInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitInterval = d
		}
	}
}

// WithMaxWaitInterval enables exponential backoff: the wait doubles after
// every consecutive failure up to d, and resets once a connection opens.
func WithMaxWaitInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxWaitInterval = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDialer replaces the gorilla/websocket transport.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}
