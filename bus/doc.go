// Package bus is the in-process broadcast hub of the relay.
//
// Producers call Publish, which never blocks. Every Subscription owns a
// private queue bounded at the bus capacity; when a subscriber falls behind,
// its oldest unread events are evicted and counted as lag for that
// subscriber alone. The publisher and the other subscribers are unaffected.
//
// Subscriptions are point-in-time: a subscriber receives exactly the events
// published after Subscribe returns, in publish order. Publish and Subscribe
// are serialized so all subscribers observe one global order.
//
//	b := bus.New(bus.WithCapacity(100))
//	sub := b.Subscribe()
//	defer sub.Close()
//
//	for {
//	    ev, err := sub.Recv(ctx)
//	    if err != nil {
//	        return err // ctx done or subscription closed
//	    }
//	    if n := sub.TakeDropped(); n > 0 {
//	        logger.Warn("lagged", "dropped", n)
//	    }
//	    handle(ev)
//	}
package bus
