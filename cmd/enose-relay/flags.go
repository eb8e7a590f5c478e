package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	Mode            string
	DeviceAddr      string
	ObserverAddr    string
	LogLevel        string
	LogFormat       string
	Window          int
	BusCapacity     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool

	// set records which flags were given explicitly
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{set: make(map[string]bool)}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigPath, "config", os.Getenv("ENOSE_CONFIG"),
		"Path to YAML configuration file (env: ENOSE_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", os.Getenv("ENOSE_CONFIG"),
		"Path to YAML configuration file (env: ENOSE_CONFIG)")
	fs.StringVar(&cfg.Mode, "mode", config.ModeNormal,
		"Run mode: normal or dummy (env: ENOSE_MODE)")
	fs.StringVar(&cfg.DeviceAddr, "device-addr", "0.0.0.0:8081",
		"Device listen address (env: ENOSE_DEVICE_ADDR)")
	fs.StringVar(&cfg.ObserverAddr, "observer-addr", "0.0.0.0:8080",
		"Observer listen address (env: ENOSE_OBSERVER_ADDR)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error (env: ENOSE_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", config.LogFormatJSON,
		"Log format: json, text, pretty (env: ENOSE_LOG_FORMAT)")
	fs.IntVar(&cfg.Window, "window", 3,
		"Moving-average window per channel (env: ENOSE_WINDOW)")
	fs.IntVar(&cfg.BusCapacity, "bus-capacity", 100,
		"Queued events per observer before the oldest is dropped (env: ENOSE_BUS_CAPACITY)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 5*time.Second,
		"Graceful shutdown timeout")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fs.Visit(func(f *flag.Flag) {
		cfg.set[f.Name] = true
	})
	return cfg, nil
}

// apply overlays explicitly given flags on the loaded configuration, so
// flags beat the file and the environment.
func (c *CLIConfig) apply(cfg *config.Config) {
	if c.set["mode"] {
		cfg.Mode = c.Mode
	}
	if c.set["device-addr"] {
		cfg.Device.Addr = c.DeviceAddr
	}
	if c.set["observer-addr"] {
		cfg.Observers.Addr = c.ObserverAddr
	}
	if c.set["log-level"] {
		cfg.Log.Level = c.LogLevel
	}
	if c.set["log-format"] {
		cfg.Log.Format = c.LogFormat
	}
	if c.set["window"] {
		cfg.SetWindow(c.Window)
	}
	if c.set["bus-capacity"] {
		cfg.Observers.BusCapacity = c.BusCapacity
	}
	if c.set["shutdown-timeout"] {
		cfg.ShutdownTimeout = c.ShutdownTimeout
	}
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - e-nose telemetry relay

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Relay a device on the default ports
  %s

  # Synthetic readings for UI work, no device needed
  %s --mode=dummy --log-format=pretty

  # Layered configuration
  export ENOSE_CONFIG=/etc/enose/relay.yaml
  export ENOSE_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --config=relay.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}
