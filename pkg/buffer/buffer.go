package buffer

import (
	"context"
)

// Buffer represents a generic bounded FIFO parameterized by item type T.
type Buffer[T any] interface {
	// Write adds an item. When full, the oldest item is evicted to make room.
	Write(item T) error

	// Read retrieves and removes the oldest item.
	// Returns false if the buffer is empty.
	Read() (T, bool)

	// ReadContext blocks until an item is available, ctx is done, or the
	// buffer is closed.
	ReadContext(ctx context.Context) (T, error)

	// Items returns a copy of the buffered items, oldest first.
	Items() []T

	// Size returns the current number of items in the buffer.
	Size() int

	// Capacity returns the maximum number of items the buffer can hold.
	Capacity() int

	// Stats returns buffer statistics.
	Stats() *Statistics

	// Close wakes blocked readers; later writes fail.
	Close() error
}

// DropCallback is called, outside the buffer lock, with each item evicted
// by a write to a full buffer.
type DropCallback[T any] func(item T)

// NewCircularBuffer creates a new circular buffer with the specified capacity
// and options. Capacity below 1 is raised to 1.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) Buffer[T] {
	return newCircularBuffer(capacity, applyOptions(options...))
}
