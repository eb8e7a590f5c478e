package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/metric"
	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/buffer"
)

// DefaultCapacity is the per-subscriber queue bound.
const DefaultCapacity = 100

// Option configures a Bus.
type Option func(*Bus)

// WithCapacity sets the per-subscriber queue bound. Values below 1 are
// ignored.
func WithCapacity(capacity int) Option {
	return func(b *Bus) {
		if capacity >= 1 {
			b.capacity = capacity
		}
	}
}

// WithMetrics exports publish, drop and queue metrics to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Bus) {
		b.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bus fans events out to subscribers.
type Bus struct {
	capacity int
	registry *metric.MetricsRegistry
	logger   *slog.Logger

	metrics    *metric.Metrics
	bufMetrics *buffer.Metrics

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		capacity: DefaultCapacity,
		logger:   slog.Default(),
		subs:     make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "event-bus")

	b.metrics = b.registry.CoreMetrics()
	bm, err := buffer.NewMetrics(b.registry, "bus")
	if err != nil {
		b.logger.Warn("Buffer metrics unavailable", "error", err)
	} else {
		b.bufMetrics = bm
	}
	return b
}

// Capacity returns the per-subscriber queue bound.
func (b *Bus) Capacity() int {
	return b.capacity
}

// Publish delivers ev to every current subscriber. It never blocks and
// publishing on a closed bus is a no-op.
func (b *Bus) Publish(ev message.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		// only fails once the subscription is closing
		_ = sub.queue.Write(ev)
	}
	b.published.Add(1)
	b.metrics.RecordPublish(ev.Kind.String())
}

// Subscribe registers a subscriber that receives every event published after
// this call returns. On a closed bus the subscription is already closed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b}
	sub.queue = buffer.NewCircularBuffer[message.Event](b.capacity,
		buffer.WithMetrics[message.Event](b.bufMetrics),
		buffer.WithDropCallback[message.Event](sub.onDrop),
	)

	if b.closed {
		_ = sub.queue.Close()
		sub.closed.Store(true)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// SubscriberCount returns the number of open subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Published returns the number of events published.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of events evicted across all subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.closed.Store(true)
		_ = sub.queue.Close()
	}
	b.logger.Debug("Event bus closed", "subscribers", len(subs))
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id     uint64
	bus    *Bus
	queue  buffer.Buffer[message.Event]
	closed atomic.Bool

	dropped atomic.Uint64
	pending atomic.Uint64
}

// ID returns the subscription id, unique within its bus.
func (s *Subscription) ID() uint64 {
	return s.id
}

func (s *Subscription) onDrop(message.Event) {
	s.dropped.Add(1)
	s.pending.Add(1)
	s.bus.dropped.Add(1)
	s.bus.metrics.RecordDrop()
}

// Recv blocks until an event is available, ctx is done or the subscription
// is closed. A closed subscription yields errors.ErrSubscriptionClose.
func (s *Subscription) Recv(ctx context.Context) (message.Event, error) {
	ev, err := s.queue.ReadContext(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return message.Event{}, ctxErr
		}
		return message.Event{}, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrSubscriptionClose, err),
			"EventBus", "Recv", "read subscriber queue")
	}
	return ev, nil
}

// TryRecv returns the next queued event without blocking.
func (s *Subscription) TryRecv() (message.Event, bool) {
	return s.queue.Read()
}

// Len returns the number of queued events.
func (s *Subscription) Len() int {
	return s.queue.Size()
}

// Dropped returns the total number of events this subscriber lost to lag.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Stats returns a snapshot of this subscriber's queue activity.
func (s *Subscription) Stats() buffer.StatsSummary {
	return s.queue.Stats().Summary()
}

// TakeDropped returns the events lost since the previous call and resets
// the count.
func (s *Subscription) TakeDropped() uint64 {
	return s.pending.Swap(0)
}

// Lagged returns an error wrapping errors.ErrLaggedSubscriber when events
// were lost since the previous call, and nil otherwise.
func (s *Subscription) Lagged() error {
	if n := s.TakeDropped(); n > 0 {
		return fmt.Errorf("%w: %d events dropped", errors.ErrLaggedSubscriber, n)
	}
	return nil
}

// Close unsubscribes and releases queued events. It is idempotent.
func (s *Subscription) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.bus.remove(s.id)
	_ = s.queue.Close()
}
