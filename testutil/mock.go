package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/message"
)

// RecvTimeout bounds Recv.
const RecvTimeout = 2 * time.Second

// CapturePublisher records published events. It is safe for concurrent use.
type CapturePublisher struct {
	mu     sync.Mutex
	events []message.Event
}

// Publish records ev.
func (c *CapturePublisher) Publish(ev message.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of everything published so far.
func (c *CapturePublisher) Events() []message.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message.Event(nil), c.events...)
}

// Len returns the number of published events.
func (c *CapturePublisher) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Receiver is satisfied by *bus.Subscription.
type Receiver interface {
	Recv(ctx context.Context) (message.Event, error)
}

// Recv returns the next event from r, failing the test after RecvTimeout.
func Recv(t testing.TB, r Receiver) message.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), RecvTimeout)
	defer cancel()
	ev, err := r.Recv(ctx)
	require.NoError(t, err)
	return ev
}
