package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ENOSE"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: EnvPrefix,
		getenv:    os.Getenv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies defaults, every layer in order and the environment
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrMissingConfig, err),
				"Loader", "Load", "read "+path)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Decode decodes YAML over cfg. Keys absent from data keep their current
// values; unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if stderrors.Is(err, io.EOF) {
			// comments only
			return nil
		}
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Loader", "Decode", "decode yaml")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(name string) string {
		return strings.TrimSpace(l.getenv(l.envPrefix + "_" + name))
	}

	if val := env("MODE"); val != "" {
		cfg.Mode = strings.ToLower(val)
	}
	if val := env("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := env("LOG_FORMAT"); val != "" {
		cfg.Log.Format = strings.ToLower(val)
	}
	if val := env("DEVICE_ADDR"); val != "" {
		cfg.Device.Addr = val
	}
	if val := env("OBSERVER_ADDR"); val != "" {
		cfg.Observers.Addr = val
	}
	if val := env("WINDOW"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return envError("WINDOW", val, err)
		}
		cfg.SetWindow(n)
	}
	if val := env("BUS_CAPACITY"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return envError("BUS_CAPACITY", val, err)
		}
		cfg.Observers.BusCapacity = n
	}
	if val := env("SAMPLE"); val != "" {
		cfg.Synthetic.Sample = val
	}
	if val := env("RECORDER_PATH"); val != "" {
		cfg.Recorder.Path = val
		cfg.Recorder.Enabled = true
	}
	if val := env("SERIAL_PORT"); val != "" {
		cfg.Serial.Port = val
		cfg.Serial.Enabled = true
	}
	if val := env("NATS_URL"); val != "" {
		cfg.NATS.URL = val
		cfg.NATS.Enabled = true
	}
	if val := env("METRICS_ADDR"); val != "" {
		cfg.Metrics.Addr = val
	}
	return nil
}

func envError(name, val string, err error) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s_%s=%q: %w", errors.ErrInvalidConfig, EnvPrefix, name, val, err),
		"Loader", "applyEnvOverrides", "parse "+name)
}
