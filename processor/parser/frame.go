package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

// FrameKind is the closed set of device frame discriminators.
type FrameKind int

const (
	// KindUnknown is any discriminator outside the recognized set.
	KindUnknown FrameKind = iota
	// KindData is a sensor reading.
	KindData
	// KindStatus is a device status message.
	KindStatus
	// KindMotor is a motor speed report.
	KindMotor
	// KindCalibProgress is a calibration progress report.
	KindCalibProgress
)

// String returns the wire discriminator for the kind.
func (k FrameKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindStatus:
		return "status"
	case KindMotor:
		return "motor"
	case KindCalibProgress:
		return "calib_progress"
	default:
		return "unknown"
	}
}

// IsStatus reports whether the kind maps to a StatusEvent.
func (k FrameKind) IsStatus() bool {
	return k == KindStatus || k == KindMotor || k == KindCalibProgress
}

func kindOf(discriminator string) FrameKind {
	switch discriminator {
	case "data":
		return KindData
	case "status":
		return KindStatus
	case "motor":
		return KindMotor
	case "calib_progress":
		return KindCalibProgress
	}
	return KindUnknown
}

// Frame is one parsed device line. Fields holds every top-level member,
// including "type", as raw JSON.
type Frame struct {
	Kind   FrameKind
	Type   string
	Fields map[string]json.RawMessage
}

// ParseFrame parses a single line (without its newline). It fails with
// errors.ErrMalformedFrame when the line is not a JSON object or its "type"
// member is absent or not a string. It has no side effects.
func ParseFrame(line string) (*Frame, error) {
	data := []byte(strings.TrimSpace(line))
	if len(data) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: empty line", errors.ErrMalformedFrame),
			"FrameParser", "ParseFrame", "read line")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err),
			"FrameParser", "ParseFrame", "decode json")
	}
	if fields == nil {
		// literal null
		return nil, errors.WrapInvalid(fmt.Errorf("%w: not an object", errors.ErrMalformedFrame),
			"FrameParser", "ParseFrame", "decode json")
	}

	raw, ok := fields["type"]
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: missing type", errors.ErrMalformedFrame),
			"FrameParser", "ParseFrame", "read discriminator")
	}

	var discriminator string
	if !isJSONString(raw) || json.Unmarshal(raw, &discriminator) != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: type is not a string", errors.ErrMalformedFrame),
			"FrameParser", "ParseFrame", "read discriminator")
	}

	return &Frame{
		Kind:   kindOf(discriminator),
		Type:   discriminator,
		Fields: fields,
	}, nil
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

func isJSONNumber(raw json.RawMessage) bool {
	return len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'))
}

// lookup returns the raw member, treating null as absent.
func (f *Frame) lookup(key string) (json.RawMessage, error) {
	raw, ok := f.Fields[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%s: %w", key, ErrFieldMissing)
	}
	return raw, nil
}

// Has reports whether key is present and not null.
func (f *Frame) Has(key string) bool {
	_, err := f.lookup(key)
	return err == nil
}

// GetString returns a string member.
func (f *Frame) GetString(key string) (string, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return "", err
	}
	var s string
	if !isJSONString(raw) || json.Unmarshal(raw, &s) != nil {
		return "", fmt.Errorf("%s: %w: want string", key, ErrFieldType)
	}
	return s, nil
}

// GetFloat returns a numeric member. Integer and fractional literals are both
// accepted; values beyond float64 range are rejected.
func (f *Frame) GetFloat(key string) (float64, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return 0, err
	}
	if !isJSONNumber(raw) {
		return 0, fmt.Errorf("%s: %w: want number", key, ErrFieldType)
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %w", key, ErrFieldRange)
	}
	return v, nil
}

// GetInt returns an integer member. Fractional or exponent literals such as
// 60.0 are rejected.
func (f *Frame) GetInt(key string) (int64, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return 0, err
	}
	if !isJSONNumber(raw) {
		return 0, fmt.Errorf("%s: %w: want integer", key, ErrFieldType)
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, fmt.Errorf("%s: %w", key, ErrFieldRange)
		}
		return 0, fmt.Errorf("%s: %w: want integer", key, ErrFieldType)
	}
	return v, nil
}

// GetUint returns a non-negative integer member.
func (f *Frame) GetUint(key string) (uint64, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return 0, err
	}
	if !isJSONNumber(raw) {
		return 0, fmt.Errorf("%s: %w: want unsigned integer", key, ErrFieldType)
	}
	if raw[0] == '-' {
		return 0, fmt.Errorf("%s: %w: negative", key, ErrFieldRange)
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, fmt.Errorf("%s: %w", key, ErrFieldRange)
		}
		return 0, fmt.Errorf("%s: %w: want unsigned integer", key, ErrFieldType)
	}
	return v, nil
}
