package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// Wire prefixes of the observer protocol.
const (
	PrefixData   = "DATA"
	PrefixStatus = "STATUS"
)

// EncodeLine renders an event as one observer line: "DATA:<json>\n" for
// readings and "STATUS:<json>\n" for status updates. Commands have no wire
// form and yield ErrNotWireEvent.
func EncodeLine(e Event) ([]byte, error) {
	var prefix string
	switch e.Kind {
	case KindReading:
		prefix = PrefixData
	case KindStatus:
		prefix = PrefixStatus
	default:
		return nil, errors.WrapInvalid(errors.ErrNotWireEvent, "Wire", "EncodeLine",
			fmt.Sprintf("encode %s event", e.Kind))
	}

	body, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, errors.WrapInvalid(err, "Wire", "EncodeLine", "marshal payload")
	}

	var buf bytes.Buffer
	buf.Grow(len(prefix) + 1 + len(body) + 1)
	buf.WriteString(prefix)
	buf.WriteByte(':')
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// DecodeLine parses one observer line, with or without its trailing newline,
// back into an event. It is the client side of EncodeLine.
func DecodeLine(line string) (Event, error) {
	line = strings.TrimRight(line, "\r\n")

	prefix, body, ok := strings.Cut(line, ":")
	if !ok {
		return Event{}, errors.WrapInvalid(errors.ErrMalformedFrame, "Wire", "DecodeLine", "find prefix")
	}

	switch prefix {
	case PrefixData:
		var r SensorReading
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return Event{}, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err),
				"Wire", "DecodeLine", "unmarshal reading")
		}
		return NewReadingEvent(r), nil
	case PrefixStatus:
		var s StatusEvent
		if err := json.Unmarshal([]byte(body), &s); err != nil {
			return Event{}, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err),
				"Wire", "DecodeLine", "unmarshal status")
		}
		return NewStatusEvent(s), nil
	}

	return Event{}, errors.WrapInvalid(fmt.Errorf("%w: prefix %q", errors.ErrMalformedFrame, prefix),
		"Wire", "DecodeLine", "match prefix")
}
