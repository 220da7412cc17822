package config

import "time"

// Config is the root configuration for one persistent connection.
type Config struct {
	Address         string          `yaml:"address"`           // ws:// or wss:// URL
	WaitInterval    time.Duration   `yaml:"wait_interval"`     // Delay before reconnecting after a failure
	MaxWaitInterval time.Duration   `yaml:"max_wait_interval"` // Backoff cap; <= WaitInterval means a fixed wait
	Transport       TransportConfig `yaml:"transport"`
}

// TransportConfig holds WebSocket dial and keepalive settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration     `yaml:"write_timeout"` // Write deadline for sends
	PingInterval     time.Duration     `yaml:"ping_interval"` // Client keepalive ping period
	PingTimeout      time.Duration     `yaml:"ping_timeout"`  // Max time without ping/pong before the connection is stale
	ReadLimit        int64             `yaml:"read_limit"`    // Max inbound message size in bytes, 0 = unlimited
	Headers          map[string]string `yaml:"headers"`
	Subprotocols     []string          `yaml:"subprotocols"`
}

// New returns a Config for address with every default applied.
func New(address string) Config {
	cfg := Config{Address: address}
	cfg.ApplyDefaults()
	return cfg
}
