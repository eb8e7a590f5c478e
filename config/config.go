package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/device"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/serial"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/synthetic"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/file"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/natsmirror"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/relay"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/websocket"
)

// Run modes.
const (
	ModeNormal = "normal" // real device over TCP (and serial when enabled)
	ModeDummy  = "dummy"  // synthetic readings, no device ingress
)

// Log formats.
const (
	LogFormatJSON   = "json"
	LogFormatText   = "text"
	LogFormatPretty = "pretty"
)

// Config represents the complete relay configuration
type Config struct {
	Mode            string            `yaml:"mode"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
	Log             LogConfig         `yaml:"log"`
	Device          device.Config     `yaml:"device"`
	Observers       ObserverConfig    `yaml:"observers"`
	WebSocket       websocket.Config  `yaml:"websocket"`
	Recorder        file.Config       `yaml:"recorder"`
	Synthetic       synthetic.Config  `yaml:"synthetic"`
	Serial          serial.Config     `yaml:"serial"`
	NATS            natsmirror.Config `yaml:"nats"`
	Metrics         MetricsConfig     `yaml:"metrics"`
}

// LogConfig selects the log level and handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObserverConfig is the observer endpoint plus the bus sizing it depends on
type ObserverConfig struct {
	relay.Config `yaml:",inline"`
	BusCapacity  int `yaml:"bus_capacity"`
}

// MetricsConfig controls the Prometheus and health endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:            ModeNormal,
		ShutdownTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatJSON,
		},
		Device: device.DefaultConfig(),
		Observers: ObserverConfig{
			Config:      relay.DefaultConfig(),
			BusCapacity: bus.DefaultCapacity,
		},
		WebSocket: websocket.DefaultConfig(),
		Recorder:  file.DefaultConfig(),
		Synthetic: synthetic.DefaultConfig(),
		Serial:    serial.DefaultConfig(),
		NATS:      natsmirror.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "0.0.0.0:9090",
			Path:    "/metrics",
		},
	}
}

// SetWindow sets the smoothing window for every device source
func (c *Config) SetWindow(window int) {
	c.Device.Window = window
	c.Serial.Window = window
}

// IsDummy reports whether the relay runs on synthetic data
func (c *Config) IsDummy() bool {
	return c.Mode == ModeDummy
}

// SlogLevel parses Log.Level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, errors.WrapInvalid(
			fmt.Errorf("%w: log level %q", errors.ErrInvalidConfig, c.Log.Level),
			"Config", "SlogLevel", "parse level")
	}
	return level, nil
}

// Validate checks the configuration. Sections of disabled features are
// not checked.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeNormal, ModeDummy:
	default:
		return invalid("mode must be %q or %q, got %q", ModeNormal, ModeDummy, c.Mode)
	}
	if c.ShutdownTimeout <= 0 {
		return invalid("shutdown_timeout must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case LogFormatJSON, LogFormatText, LogFormatPretty:
	default:
		return invalid("log format must be json, text or pretty, got %q", c.Log.Format)
	}

	if !c.IsDummy() {
		if err := c.Device.Validate(); err != nil {
			return err
		}
	}
	if err := c.Observers.Validate(); err != nil {
		return err
	}
	if c.Observers.BusCapacity < 1 {
		return invalid("bus_capacity must be >= 1, got %d", c.Observers.BusCapacity)
	}

	checks := []struct {
		enabled  bool
		validate func() error
	}{
		{c.WebSocket.Enabled, c.WebSocket.Validate},
		{c.Recorder.Enabled, c.Recorder.Validate},
		{c.Synthetic.Enabled || c.IsDummy(), c.Synthetic.Validate},
		{c.Serial.Enabled, c.Serial.Validate},
		{c.NATS.Enabled, c.NATS.Validate},
	}
	for _, check := range checks {
		if !check.enabled {
			continue
		}
		if err := check.validate(); err != nil {
			return err
		}
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return invalid("metrics addr %q: %v", c.Metrics.Addr, err)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics path %q must start with /", c.Metrics.Path)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
		"Config", "Validate", "check config")
}
