// Package natsclient wraps a single nats.go connection for the relay's
// event mirror.
//
// Connect dials with exponential backoff from pkg/retry (unlimited attempts
// by default, bounded by the caller's context). After the first successful
// dial, nats.go's own reconnect logic takes over and the client tracks the
// resulting status transitions, reporting them through slog, an optional
// health callback and the enose_nats_connected gauge.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("enose-relay"),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Publish(ctx, "enose.reading.daun_kari", payload)
//
// Publish fails fast with ErrNotConnected while disconnected; it never
// buffers.
package natsclient
