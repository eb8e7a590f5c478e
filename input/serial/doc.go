// Package serial ingests device frames from a USB serial port.
//
// Bench setups often attach the e-nose controller over USB instead of WiFi.
// The Source opens the port, runs one device.Session over it and, when the
// port fails or the cable is pulled, reopens it with exponential backoff.
// Every reopen starts a new session with fresh smoothing state, exactly as
// a TCP reconnect does.
//
//	serial:
//	  enabled: true
//	  port: /dev/ttyUSB0
//	  baud: 115200
package serial
