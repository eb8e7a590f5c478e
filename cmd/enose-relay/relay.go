package main

import (
	"fmt"
	"log/slog"

	"github.com/ianfajar-codes/SPS-Enose-Project/bus"
	"github.com/ianfajar-codes/SPS-Enose-Project/component"
	"github.com/ianfajar-codes/SPS-Enose-Project/config"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/device"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/serial"
	"github.com/ianfajar-codes/SPS-Enose-Project/input/synthetic"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/file"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/natsmirror"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/relay"
	"github.com/ianfajar-codes/SPS-Enose-Project/output/websocket"
)

// Component names used for registration, logs and /healthz.
const (
	nameObservers = "observers"
	nameWebSocket = "websocket"
	nameRecorder  = "recorder"
	nameMirror    = "nats-mirror"
	nameDevice    = "device"
	nameSerial    = "serial"
	nameSynthetic = "synthetic"
)

// relayApp is the assembled relay: one bus and the components around it.
type relayApp struct {
	bus     *bus.Bus
	manager *component.Manager
	names   []string
}

// newRelay builds the bus and registers every enabled component. Consumers
// are registered before producers so nothing published at startup is missed.
func newRelay(cfg *config.Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*relayApp, error) {
	b := bus.New(
		bus.WithCapacity(cfg.Observers.BusCapacity),
		bus.WithMetrics(registry),
		bus.WithLogger(logger),
	)

	app := &relayApp{
		bus:     b,
		manager: component.NewManager(logger),
	}

	register := func(name string, c component.LifecycleComponent) error {
		if err := app.manager.Register(name, c); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		app.names = append(app.names, name)
		return nil
	}

	components := []struct {
		name    string
		enabled bool
		build   func() component.LifecycleComponent
	}{
		{nameObservers, true, func() component.LifecycleComponent {
			return relay.NewServer(relay.ServerDeps{
				Name:            nameObservers,
				Config:          cfg.Observers.Config,
				Bus:             b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameWebSocket, cfg.WebSocket.Enabled, func() component.LifecycleComponent {
			return websocket.NewOutput(websocket.Deps{
				Name:            nameWebSocket,
				Config:          cfg.WebSocket,
				Bus:             b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameRecorder, cfg.Recorder.Enabled, func() component.LifecycleComponent {
			return file.NewRecorder(file.Deps{
				Name:            nameRecorder,
				Config:          cfg.Recorder,
				Bus:             b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameMirror, cfg.NATS.Enabled, func() component.LifecycleComponent {
			return natsmirror.NewMirror(natsmirror.Deps{
				Name:            nameMirror,
				Config:          cfg.NATS,
				Bus:             b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameDevice, !cfg.IsDummy(), func() component.LifecycleComponent {
			return device.NewListener(device.ListenerDeps{
				Name:            nameDevice,
				Config:          cfg.Device,
				Publisher:       b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameSerial, cfg.Serial.Enabled && !cfg.IsDummy(), func() component.LifecycleComponent {
			return serial.NewSource(serial.Deps{
				Name:            nameSerial,
				Config:          cfg.Serial,
				Publisher:       b,
				MetricsRegistry: registry,
				Logger:          logger,
			})
		}},
		{nameSynthetic, cfg.Synthetic.Enabled || cfg.IsDummy(), func() component.LifecycleComponent {
			return synthetic.NewGenerator(synthetic.Deps{
				Name:      nameSynthetic,
				Config:    cfg.Synthetic,
				Publisher: b,
				Logger:    logger,
			})
		}},
	}

	for _, c := range components {
		if !c.enabled {
			continue
		}
		if err := register(c.name, c.build()); err != nil {
			b.Close()
			return nil, err
		}
	}
	return app, nil
}
