package relay

import (
	"fmt"
	"net"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Config holds the observer endpoint settings.
type Config struct {
	// Addr is the TCP listen address for observers.
	Addr string `yaml:"addr"`
	// AcceptCommands enables reading command lines from observers.
	AcceptCommands bool `yaml:"accept_commands"`
}

// DefaultConfig returns the default observer settings.
func DefaultConfig() Config {
	return Config{
		Addr:           "0.0.0.0:8080",
		AcceptCommands: true,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: observer addr is empty", errors.ErrMissingConfig),
			"RelayConfig", "Validate", "check addr")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: observer addr %q: %w", errors.ErrInvalidConfig, c.Addr, err),
			"RelayConfig", "Validate", "check addr")
	}
	return nil
}
