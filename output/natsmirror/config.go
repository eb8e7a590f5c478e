package natsmirror

import (
	"fmt"
	"strings"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Config holds configuration for the NATS mirror
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns default configuration for the mirror
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		URL:           "nats://localhost:4222",
		SubjectPrefix: "enose",
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: nats url is empty", errors.ErrMissingConfig),
			"MirrorConfig", "Validate", "check url")
	}
	if c.SubjectPrefix == "" || strings.ContainsAny(c.SubjectPrefix, " *>") ||
		strings.HasPrefix(c.SubjectPrefix, ".") || strings.HasSuffix(c.SubjectPrefix, ".") {
		return errors.WrapInvalid(fmt.Errorf("%w: invalid subject prefix %q", errors.ErrInvalidConfig, c.SubjectPrefix),
			"MirrorConfig", "Validate", "check subject prefix")
	}
	return nil
}
