// Package relay serves the observer side of the relay: a TCP listener that
// streams every bus event to each connected observer as one line,
//
//	DATA:{"timestamp":1000,"sample":"Daun Kari","co_m":2.56,...}
//	STATUS:{"msg_type":"motor","motor":"M1","speed":60}
//
// Each accepted connection becomes a Session subscribed to the bus at accept
// time. A Session runs a writer that drains its subscription and, when
// commands are enabled, a reader that publishes each non-empty inbound line
// as a command event. Whichever side ends first tears down the whole session
// and releases the subscription.
//
// Observers that read slower than the device produces lose their oldest
// queued events; the loss is logged per session and counted in
// enose_bus_events_dropped_total. Other observers are unaffected.
package relay
