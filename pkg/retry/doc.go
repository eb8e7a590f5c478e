// Package retry runs an operation with exponential backoff.
//
// The relay uses it in three places: binding the device and observer
// listeners at startup (Bind), connecting to NATS, and reopening a serial
// port after the device is unplugged (Reconnect, which never gives up until
// its context is cancelled).
//
//	ln, err := retry.DoWithResult(ctx, retry.Bind(), func() (net.Listener, error) {
//	    return net.Listen("tcp", addr)
//	})
//
// Wrap an error with NonRetryable to stop immediately.
package retry
