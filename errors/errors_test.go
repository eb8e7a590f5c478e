package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection", ErrConnection, true},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"malformed frame", ErrMalformedFrame, false},
		{"invalid reading", ErrInvalidReading, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"bind failed", fmt.Errorf("listen: %w", ErrBindFailed), true},
		{"connection", ErrConnection, false},
		{"malformed frame", ErrMalformedFrame, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrMalformedFrame))
	assert.True(t, IsInvalid(fmt.Errorf("line 3: %w", ErrInvalidReading)))
	assert.True(t, IsInvalid(ErrNotWireEvent))
	assert.False(t, IsInvalid(ErrConnection))
	assert.True(t, IsInvalid(&ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}))
}

func TestIsClosed(t *testing.T) {
	assert.False(t, IsClosed(nil))
	assert.True(t, IsClosed(io.EOF))
	assert.True(t, IsClosed(fmt.Errorf("read: %w", net.ErrClosed)))
	assert.True(t, IsClosed(ErrSubscriptionClose))
	assert.False(t, IsClosed(ErrMalformedFrame))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrConnection))
	assert.Equal(t, ErrorInvalid, Classify(ErrMalformedFrame))
	assert.Equal(t, ErrorFatal, Classify(ErrBindFailed))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestClassifiedError(t *testing.T) {
	base := errors.New("base error")
	ce := &ClassifiedError{
		Class:     ErrorInvalid,
		Err:       base,
		Message:   "custom message",
		Component: "parser",
		Operation: "ParseFrame",
	}

	assert.Equal(t, "custom message", ce.Error())
	assert.Equal(t, base, ce.Unwrap())
	assert.True(t, errors.Is(ce, base))

	noMsg := &ClassifiedError{Class: ErrorFatal, Err: base}
	assert.Equal(t, "base error", noMsg.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "C", "M", "action"))

	err := Wrap(ErrMalformedFrame, "FrameParser", "ParseFrame", "decode json")
	require.Error(t, err)
	assert.Equal(t, "FrameParser.ParseFrame: decode json failed: malformed frame", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, tt.wrap(nil, "C", "M", "a"))

			err := tt.wrap(base, "Relay", "Start", "bind")
			var ce *ClassifiedError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Relay", ce.Component)
			assert.Equal(t, "Start", ce.Operation)
			assert.True(t, errors.Is(err, base))
		})
	}
}

func TestConnection(t *testing.T) {
	assert.Nil(t, Connection(nil, "C", "M", "a"))

	err := Connection(io.ErrUnexpectedEOF, "ObserverSession", "write", "write line")
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.True(t, IsTransient(err))
}
