// Package device ingests the sensor device's newline-delimited JSON frames.
//
// A Session turns one byte stream into bus events: every non-blank line is
// parsed, dispatched by its "type" discriminator and published. Bad lines
// are logged and skipped; only a read failure or EOF ends the session. Each
// session owns its own smoothing state, so reconnecting starts the moving
// averages afresh.
//
// Listener is the TCP ingress component. It accepts device connections
// indefinitely and runs one Session per connection:
//
//	l := device.NewListener(device.ListenerDeps{
//	    Config:    device.Config{Addr: "0.0.0.0:8081", Window: 3},
//	    Publisher: eventBus,
//	    Logger:    logger,
//	})
//	if err := l.Initialize(); err != nil { ... }
//	if err := l.Start(ctx); err != nil { ... } // bind failure is fatal
//	defer l.Stop(5 * time.Second)
//
// The serial input reuses Session over a serial port.
package device
