// Package websocket serves observers over WebSocket.
//
// # Overview
//
// Browser dashboards cannot open raw TCP sockets, so the same observer
// stream is offered on an HTTP endpoint. Each upgraded connection gets its
// own bus subscription and is driven by a relay.Session through a small
// adapter, so framing, lag handling and command semantics match the TCP
// observer port exactly:
//
//   - every bus reading or status becomes one text message holding the
//     usual "DATA:{...}\n" or "STATUS:{...}\n" line
//   - every inbound text message is treated as one command line and
//     published as a CommandEvent with origin set to the session id
//
// # Configuration
//
//	websocket:
//	  enabled: true
//	  addr: "0.0.0.0:8082"
//	  path: "/ws"
//	  accept_commands: true
//	  ping_interval: "30s"
//
// Connections are kept alive with WebSocket pings. There is no idle
// timeout; a client that stops reading only loses events to the bus's
// drop-oldest policy.
package websocket
