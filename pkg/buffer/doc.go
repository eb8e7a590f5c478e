// Package buffer provides a generic, thread-safe circular buffer that
// evicts its oldest item when full.
//
// The relay uses it twice: as the bounded per-subscriber queue behind the
// event bus (blocking ReadContext) and as the sliding smoothing window behind
// each sensor channel (Items snapshot).
//
// Statistics are always collected and exposed through Stats; Summary gives a
// point-in-time copy. Prometheus metrics are optional via WithMetrics and may
// be shared by many buffers.
//
// # Overflow
//
// A write to a full buffer evicts the head of the ring to admit the new item.
// The write succeeds and never blocks, the loss is counted in
// Statistics.Drops and the drop callback receives the evicted item after the
// buffer lock is released.
//
// # Blocking reads
//
// ReadContext parks the caller on a condition variable until a write, a
// context cancellation or Close. Close discards queued items, so a reader
// that sees the shutting-down error has nothing left to drain.
//
//	q := buffer.NewCircularBuffer[message.Event](100,
//	    buffer.WithDropCallback(func(message.Event) { lagged.Add(1) }),
//	)
//	ev, err := q.ReadContext(ctx)
package buffer
