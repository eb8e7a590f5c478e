// Package main implements the entry point for the e-nose relay. The relay
// accepts one electronic-nose device over TCP, smooths its readings and
// fans them out to any number of observers as DATA:/STATUS: lines.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ianfajar-codes/SPS-Enose-Project/config"
	"github.com/ianfajar-codes/SPS-Enose-Project/health"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
)

// Build information constants
const (
	Version   = "1.0.0"
	BuildTime = "dev"
	appName   = "enose-relay"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cli, err := parseFlags(args, os.Stderr)
	if stderrors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	logger := setupLogger(os.Stdout, level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		slog.Info("Configuration is valid", "config_path", cli.ConfigPath, "mode", cfg.Mode)
		return nil
	}

	slog.Info("Starting e-nose relay",
		"version", Version,
		"build_time", BuildTime,
		"mode", cfg.Mode,
		"config_path", cli.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// loadConfig layers defaults, the optional file, ENOSE_* variables and
// finally explicit flags, then validates the result.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cli.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serve runs the relay until ctx is cancelled or a fatal error occurs.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()

	app, err := newRelay(cfg, registry, logger)
	if err != nil {
		return err
	}

	if err := app.manager.Start(ctx); err != nil {
		app.bus.Close()
		return fmt.Errorf("start relay: %w", err)
	}
	slog.Info("E-nose relay started", "components", app.names)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := metric.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, registry, func() health.Status {
			return health.FromComponents(appName, app.manager.ComponentHealth())
		})
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Stop(cfg.ShutdownTimeout)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		err := app.manager.Stop(cfg.ShutdownTimeout)
		app.bus.Close()
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("E-nose relay shutdown complete")
	return nil
}
