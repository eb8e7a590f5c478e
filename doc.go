// Package enose is a telemetry relay for an electronic-nose sensor device.
//
// A single device connects over TCP (or a serial port) and streams one JSON
// frame per line. The relay parses each frame, smooths sensor readings with
// a per-channel moving average, and broadcasts every reading and status
// update to any number of observers in a tagged line format:
//
//	DATA:{"timestamp":1000,"sample":"Daun Kari","co_m":2.56,...}
//	STATUS:{"msg_type":"motor","motor":"M1","speed":60}
//
// # Architecture
//
//	device (TCP :8081) ─┐                         ┌─> observers (TCP :8080)
//	serial port ────────┼─> Session ─> Bus ───────┼─> WebSocket observers
//	synthetic ──────────┘    parse      bounded   ├─> CSV recorder
//	                         smooth     fan-out   └─> NATS mirror
//
// Each subscriber owns a bounded queue. A subscriber that falls behind loses
// its oldest events rather than slowing the device or other observers.
// Lines written by observers are published as commands; they are logged,
// counted and mirrored to NATS but never written back to observers.
//
// # Packages
//
//   - processor/parser: line to tagged frame
//   - processor/normalizer: reading validation, label aliases, smoothing
//   - message: events and the observer wire format
//   - bus: bounded multi-subscriber broadcast
//   - input/device, input/serial, input/synthetic: event producers
//   - output/relay, output/websocket, output/file, output/natsmirror:
//     event consumers
//   - config, metric, health, component, errors: process plumbing
//
// The binary lives in cmd/enose-relay.
package enose
