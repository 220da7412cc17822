package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	u, err := url.Parse(c.Address)
	if err != nil {
		return fmt.Errorf("address is not a valid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("address scheme must be ws or wss, got %q", u.Scheme)
	}

	if c.WaitInterval <= 0 {
		return errors.New("wait_interval must be > 0")
	}
	if c.MaxWaitInterval < 0 {
		return errors.New("max_wait_interval must be >= 0")
	}

	return c.Transport.validate("transport")
}

func (t *TransportConfig) validate(prefix string) error {
	if t.HandshakeTimeout < 0 {
		return fmt.Errorf("%s.handshake_timeout must be >= 0", prefix)
	}
	if t.WriteTimeout < 0 {
		return fmt.Errorf("%s.write_timeout must be >= 0", prefix)
	}
	if t.PingInterval < 0 {
		return fmt.Errorf("%s.ping_interval must be >= 0", prefix)
	}
	if t.PingInterval > 0 && t.PingTimeout <= t.PingInterval {
		return fmt.Errorf("%s.ping_timeout (%s) must exceed ping_interval (%s)", prefix, t.PingTimeout, t.PingInterval)
	}
	if t.ReadLimit < 0 {
		return fmt.Errorf("%s.read_limit must be >= 0", prefix)
	}
	return nil
}
