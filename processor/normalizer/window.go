package normalizer

import (
	"math"

	"github.com/ianfajar-codes/SPS-Enose-Project/pkg/buffer"
)

// ChannelBuffer keeps the last W raw values of one channel.
type ChannelBuffer struct {
	values buffer.Buffer[float64]
}

// NewChannelBuffer creates a buffer holding at most window values.
func NewChannelBuffer(window int) *ChannelBuffer {
	return &ChannelBuffer{
		values: buffer.NewCircularBuffer[float64](window),
	}
}

// Push appends v, evicting the oldest value when the window is full.
func (c *ChannelBuffer) Push(v float64) {
	// a drop-oldest buffer only rejects writes after Close, which never happens here
	_ = c.values.Write(v)
}

// Mean returns the arithmetic mean of the buffered values, or 0 when empty.
func (c *ChannelBuffer) Mean() float64 {
	items := c.values.Items()
	if len(items) == 0 {
		return 0
	}
	n := float64(len(items))
	var sum float64
	for _, v := range items {
		sum += v
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}
	// finite values near the float64 limit; each share fits
	var mean float64
	for _, v := range items {
		mean += v / n
	}
	return mean
}

// Len returns the number of buffered values.
func (c *ChannelBuffer) Len() int {
	return c.values.Size()
}

// Window returns the configured window size.
func (c *ChannelBuffer) Window() int {
	return c.values.Capacity()
}
