// Package natsmirror republishes bus events to NATS.
//
// The mirror is a bus subscriber that forwards every event as JSON:
//
//	<prefix>.reading.<sample>   SensorReading, sample folded to a subject token
//	<prefix>.status.<msg_type>  StatusEvent
//	<prefix>.command            CommandEvent
//
// with prefix "enose" by default. Publishing is fire-and-forget: while the
// NATS connection is down events are counted as failed and skipped, and the
// relay itself is never slowed down.
package natsmirror
