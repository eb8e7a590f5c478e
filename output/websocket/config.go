package websocket

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Config holds the WebSocket observer endpoint settings.
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Path           string        `yaml:"path"`
	AcceptCommands bool          `yaml:"accept_commands"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the default settings. The endpoint is off unless
// enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		Addr:           "0.0.0.0:8082",
		Path:           "/ws",
		AcceptCommands: true,
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: websocket addr is empty", errors.ErrMissingConfig),
			"WebSocketConfig", "Validate", "check addr")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: websocket addr %q: %w", errors.ErrInvalidConfig, c.Addr, err),
			"WebSocketConfig", "Validate", "check addr")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return errors.WrapInvalid(fmt.Errorf("%w: websocket path %q must start with /", errors.ErrInvalidConfig, c.Path),
			"WebSocketConfig", "Validate", "check path")
	}
	if c.PingInterval < 0 || c.WriteTimeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: negative websocket timing", errors.ErrInvalidConfig),
			"WebSocketConfig", "Validate", "check timing")
	}
	return nil
}
