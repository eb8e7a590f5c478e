package buffer

// Option configures buffer behavior using the functional options pattern.
type Option[T any] func(*bufferOptions[T])

// bufferOptions holds internal configuration for buffer instances.
type bufferOptions[T any] struct {
	dropCallback DropCallback[T]
	metrics      *Metrics
}

// WithMetrics exports buffer activity to m. A nil m is ignored, and one
// *Metrics may back any number of buffers.
func WithMetrics[T any](m *Metrics) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.metrics = m
	}
}

// WithDropCallback sets a callback function that is called when items are dropped.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.dropCallback = callback
	}
}

func applyOptions[T any](options ...Option[T]) *bufferOptions[T] {
	opts := &bufferOptions[T]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
