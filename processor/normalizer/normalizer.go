package normalizer

import (
	"fmt"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/parser"
)

// DefaultWindow is the smoothing window used when none is configured.
const DefaultWindow = 3

// Normalizer turns data frames into smoothed readings. It is not safe for
// concurrent use; each ingestion session owns its own instance.
type Normalizer struct {
	window   int
	channels [message.NumChannels]*ChannelBuffer
}

// New creates a Normalizer with a fixed smoothing window of at least 1.
func New(window int) (*Normalizer, error) {
	if window < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: smoothing window must be >= 1, got %d", errors.ErrInvalidConfig, window),
			"Normalizer", "New", "validate window")
	}

	n := &Normalizer{window: window}
	for i := range n.channels {
		n.channels[i] = NewChannelBuffer(window)
	}
	return n, nil
}

// Window returns the smoothing window size.
func (n *Normalizer) Window() int {
	return n.window
}

// NormalizeReading decodes a data frame strictly, canonicalizes its label and
// replaces each channel with the mean of its last Window raw values. Any
// missing or mistyped required field fails with errors.ErrInvalidReading and
// leaves the smoothing state untouched.
func (n *Normalizer) NormalizeReading(frame *parser.Frame) (message.SensorReading, error) {
	reading, err := decodeReading(frame)
	if err != nil {
		return message.SensorReading{}, err
	}

	reading.Sample = CanonicalSample(reading.Sample)
	for i, c := range message.Channels {
		n.channels[i].Push(reading.Value(c))
		reading.SetValue(c, n.channels[i].Mean())
	}
	return reading, nil
}

func decodeReading(frame *parser.Frame) (message.SensorReading, error) {
	var r message.SensorReading
	if frame == nil {
		return r, invalidReading(fmt.Errorf("nil frame"), "decode frame")
	}

	sample, err := frame.GetString("sample")
	if err != nil {
		return r, invalidReading(err, "decode sample")
	}
	r.Sample = sample

	for _, c := range message.Channels {
		v, err := frame.GetFloat(c.Name())
		if err != nil {
			return message.SensorReading{}, invalidReading(err, "decode channel")
		}
		r.SetValue(c, v)
	}

	ts, err := decodeTimestamp(frame)
	if err != nil {
		return message.SensorReading{}, invalidReading(err, "decode timestamp")
	}
	r.Timestamp = ts
	return r, nil
}

// decodeTimestamp prefers "timestamp" and falls back to "ts".
func decodeTimestamp(frame *parser.Frame) (uint64, error) {
	if frame.Has("timestamp") {
		return frame.GetUint("timestamp")
	}
	return frame.GetUint("ts")
}

func invalidReading(err error, action string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidReading, err),
		"Normalizer", "NormalizeReading", action)
}
