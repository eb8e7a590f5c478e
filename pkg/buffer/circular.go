package buffer

import (
	"context"
	"sync"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// circularBuffer is a thread-safe ring with a fixed capacity.
type circularBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	opts     *bufferOptions[T]
	notEmpty *sync.Cond
	closed   bool
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) *circularBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}

	cb := &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		opts:     opts,
	}
	cb.notEmpty = sync.NewCond(&cb.mu)

	return cb
}

// Write adds an item, evicting the oldest when the buffer is full. The drop
// callback, if any, runs after the lock is released.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrShuttingDown, "Buffer", "Write", "buffer closed")
	}

	var (
		dropped T
		didDrop bool
	)

	if cb.size == cb.capacity {
		dropped = cb.popLocked()
		didDrop = true
		cb.stats.Drop()
		cb.opts.metrics.recordDrop()
	}

	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % cb.capacity
	cb.size++

	cb.stats.Write()
	cb.stats.UpdateSize(int64(cb.size))
	cb.opts.metrics.recordWrite()

	cb.notEmpty.Signal()
	cb.mu.Unlock()

	if didDrop && cb.opts.dropCallback != nil {
		cb.opts.dropCallback(dropped)
	}
	return nil
}

// popLocked removes the oldest item. Caller holds mu and has checked size > 0.
func (cb *circularBuffer[T]) popLocked() T {
	var zero T
	item := cb.items[cb.tail]
	cb.items[cb.tail] = zero
	cb.tail = (cb.tail + 1) % cb.capacity
	cb.size--
	return item
}

// Read retrieves and removes one item from the buffer.
func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}

	item := cb.popLocked()
	cb.stats.Read(1)
	cb.stats.UpdateSize(int64(cb.size))
	cb.opts.metrics.recordRead(1)

	return item, true
}

// ReadContext blocks until an item is available. It returns ctx.Err() on
// cancellation and a shutting-down error once the buffer is closed; items
// still queued at close are discarded.
func (cb *circularBuffer[T]) ReadContext(ctx context.Context) (T, error) {
	var zero T

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 && !cb.closed {
		// Wake the waiter on cancellation. Taking mu orders the broadcast
		// after the waiter's ctx check.
		stop := context.AfterFunc(ctx, func() {
			cb.mu.Lock()
			cb.notEmpty.Broadcast()
			cb.mu.Unlock()
		})
		defer stop()
	}

	for cb.size == 0 && !cb.closed {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		cb.notEmpty.Wait()
	}

	if cb.closed {
		return zero, errors.WrapInvalid(errors.ErrShuttingDown, "Buffer", "ReadContext", "buffer closed")
	}

	item := cb.popLocked()
	cb.stats.Read(1)
	cb.stats.UpdateSize(int64(cb.size))
	cb.opts.metrics.recordRead(1)

	return item, nil
}

// Items returns a copy of the buffered items, oldest first.
func (cb *circularBuffer[T]) Items() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make([]T, cb.size)
	for i := range out {
		out[i] = cb.items[(cb.tail+i)%cb.capacity]
	}
	return out
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.capacity
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close marks the buffer closed, wakes blocked readers and releases the
// queued items.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return nil
	}
	cb.closed = true

	n := cb.size
	var zero T
	for i := range cb.items {
		cb.items[i] = zero
	}
	cb.size, cb.head, cb.tail = 0, 0, 0
	cb.stats.UpdateSize(0)
	cb.opts.metrics.recordDiscard(n)

	cb.notEmpty.Broadcast()
	return nil
}
