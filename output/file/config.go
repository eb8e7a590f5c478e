package file

import (
	"fmt"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Config holds configuration for the CSV recorder
type Config struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	Append        bool          `yaml:"append"`
	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DefaultConfig returns default configuration for the recorder
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Path:          "sensor_data.csv",
		Append:        true,
		BufferSize:    1,
		FlushInterval: time.Second,
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: recorder path is empty", errors.ErrMissingConfig),
			"RecorderConfig", "Validate", "check path")
	}
	if c.BufferSize < 1 {
		return errors.WrapInvalid(fmt.Errorf("%w: buffer_size must be at least 1", errors.ErrInvalidConfig),
			"RecorderConfig", "Validate", "check buffer size")
	}
	if c.FlushInterval <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: flush_interval must be positive", errors.ErrInvalidConfig),
			"RecorderConfig", "Validate", "check flush interval")
	}
	return nil
}
