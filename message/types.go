package message

import (
	"fmt"
	"strings"
)

// Keyable represents types that render to a dotted key, suitable as a NATS
// subject fragment.
type Keyable interface {
	Key() string
}

// Type provides structured type information for events so that mirrors and
// recorders can route on it without switching on Kind.
type Type struct {
	// Domain identifies the system domain, "enose" for everything here.
	Domain string

	// Category identifies the event family: "reading", "status" or "command".
	Category string

	// Version identifies the payload schema version.
	Version string
}

// Key returns "domain.category.version".
func (t Type) Key() string {
	return fmt.Sprintf("%s.%s.%s", t.Domain, t.Category, t.Version)
}

// String returns the same as Key
func (t Type) String() string {
	return t.Key()
}

// IsValid checks if the Type has all fields populated
func (t Type) IsValid() bool {
	return t.Domain != "" && t.Category != "" && t.Version != ""
}

// Event types carried by the bus.
var (
	ReadingType = Type{Domain: "enose", Category: "reading", Version: "v1"}
	StatusType  = Type{Domain: "enose", Category: "status", Version: "v1"}
	CommandType = Type{Domain: "enose", Category: "command", Version: "v1"}
)

// SubjectToken lower-cases s and replaces characters that are not valid in a
// single NATS subject token.
func SubjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '*', '>', '\t':
			return '_'
		}
		return r
	}, s)
}
