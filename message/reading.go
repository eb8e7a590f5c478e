package message

// Channel identifies one of the seven numeric sensor channels of a reading.
type Channel int

// Channels in wire order.
const (
	ChannelCOM Channel = iota
	ChannelEthM
	ChannelVOCM
	ChannelNO2
	ChannelEthGM
	ChannelVOCGM
	ChannelCOGM

	NumChannels = 7
)

var channelNames = [NumChannels]string{"co_m", "eth_m", "voc_m", "no2", "eth_gm", "voc_gm", "co_gm"}

// Channels lists every channel in wire order.
var Channels = [NumChannels]Channel{
	ChannelCOM, ChannelEthM, ChannelVOCM, ChannelNO2, ChannelEthGM, ChannelVOCGM, ChannelCOGM,
}

// Name returns the JSON field name of the channel.
func (c Channel) Name() string {
	if c < 0 || int(c) >= NumChannels {
		return "unknown"
	}
	return channelNames[c]
}

// String returns the JSON field name of the channel.
func (c Channel) String() string {
	return c.Name()
}

// SensorReading is one validated, smoothed sample from the device.
// Field order here is the JSON field order on the wire.
type SensorReading struct {
	Timestamp uint64  `json:"timestamp"`
	Sample    string  `json:"sample"`
	COM       float64 `json:"co_m"`
	EthM      float64 `json:"eth_m"`
	VOCM      float64 `json:"voc_m"`
	NO2       float64 `json:"no2"`
	EthGM     float64 `json:"eth_gm"`
	VOCGM     float64 `json:"voc_gm"`
	COGM      float64 `json:"co_gm"`
}

func (r *SensorReading) field(c Channel) *float64 {
	switch c {
	case ChannelCOM:
		return &r.COM
	case ChannelEthM:
		return &r.EthM
	case ChannelVOCM:
		return &r.VOCM
	case ChannelNO2:
		return &r.NO2
	case ChannelEthGM:
		return &r.EthGM
	case ChannelVOCGM:
		return &r.VOCGM
	case ChannelCOGM:
		return &r.COGM
	}
	return nil
}

// Value returns the value of channel c, or 0 for an unknown channel.
func (r SensorReading) Value(c Channel) float64 {
	if p := r.field(c); p != nil {
		return *p
	}
	return 0
}

// SetValue sets channel c. Unknown channels are ignored.
func (r *SensorReading) SetValue(c Channel, v float64) {
	if p := r.field(c); p != nil {
		*p = v
	}
}

// Values returns all channel values in wire order.
func (r SensorReading) Values() [NumChannels]float64 {
	var out [NumChannels]float64
	for i, c := range Channels {
		out[i] = r.Value(c)
	}
	return out
}
