package message

import "time"

// Kind tags the payload carried by an Event.
type Kind int

const (
	// KindReading carries a SensorReading.
	KindReading Kind = iota + 1
	// KindStatus carries a StatusEvent.
	KindStatus
	// KindCommand carries a CommandEvent.
	KindCommand
)

// String returns the lower-case kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindReading:
		return "reading"
	case KindStatus:
		return "status"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Event is the bus payload. Only the field selected by Kind is meaningful.
// Events are passed by value and must not be mutated after publishing.
type Event struct {
	Kind    Kind
	Reading SensorReading
	Status  StatusEvent
	Command CommandEvent
	At      time.Time
}

// NewReadingEvent wraps a reading.
func NewReadingEvent(r SensorReading) Event {
	return Event{Kind: KindReading, Reading: r, At: time.Now()}
}

// NewStatusEvent wraps a status update.
func NewStatusEvent(s StatusEvent) Event {
	return Event{Kind: KindStatus, Status: s, At: time.Now()}
}

// NewCommandEvent wraps a command line received from origin.
func NewCommandEvent(command, origin string) Event {
	return Event{Kind: KindCommand, Command: CommandEvent{Command: command, Origin: origin}, At: time.Now()}
}

// Type returns the structured type of the event.
func (e Event) Type() Type {
	switch e.Kind {
	case KindReading:
		return ReadingType
	case KindStatus:
		return StatusType
	case KindCommand:
		return CommandType
	}
	return Type{Domain: "enose", Category: "unknown", Version: "v1"}
}

// Payload returns the value selected by Kind, for JSON encoding.
func (e Event) Payload() any {
	switch e.Kind {
	case KindReading:
		return e.Reading
	case KindStatus:
		return e.Status
	case KindCommand:
		return e.Command
	}
	return nil
}
