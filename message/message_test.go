package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianfajar-codes/SPS-Enose-Project/errors"
)

func sampleReading() SensorReading {
	return SensorReading{
		Timestamp: 1000,
		Sample:    "Daun Kari",
		COM:       2.56,
		EthM:      1.68,
		VOCM:      0.73,
		NO2:       0.8,
		EthGM:     0.74,
		VOCGM:     0.31,
		COGM:      0.04,
	}
}

func TestEncodeLine_Reading(t *testing.T) {
	line, err := EncodeLine(NewReadingEvent(sampleReading()))
	require.NoError(t, err)

	assert.Equal(t,
		`DATA:{"timestamp":1000,"sample":"Daun Kari","co_m":2.56,"eth_m":1.68,"voc_m":0.73,`+
			`"no2":0.8,"eth_gm":0.74,"voc_gm":0.31,"co_gm":0.04}`+"\n",
		string(line))
}

func TestEncodeLine_StatusOmitsAbsentFields(t *testing.T) {
	tests := []struct {
		name string
		ev   StatusEvent
		want string
	}{
		{
			name: "status",
			ev:   NewDeviceStatus("ready", "warming up"),
			want: `STATUS:{"msg_type":"status","status":"ready","message":"warming up"}` + "\n",
		},
		{
			name: "motor",
			ev:   NewMotorStatus("M1", 60),
			want: `STATUS:{"msg_type":"motor","motor":"M1","speed":60}` + "\n",
		},
		{
			name: "calib progress",
			ev:   NewCalibProgress(5, 10),
			want: `STATUS:{"msg_type":"calib_progress","current":5,"total":10}` + "\n",
		},
		{
			name: "bare discriminator",
			ev:   StatusEvent{MsgType: StatusKindMotor},
			want: `STATUS:{"msg_type":"motor"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := EncodeLine(NewStatusEvent(tt.ev))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(line))
		})
	}
}

func TestEncodeLine_CommandHasNoWireForm(t *testing.T) {
	_, err := EncodeLine(NewCommandEvent("START", "observer-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotWireEvent)
	assert.True(t, errors.IsInvalid(err))

	_, err = EncodeLine(Event{})
	assert.ErrorIs(t, err, errors.ErrNotWireEvent)
}

func TestDecodeLine_InvertsEncode(t *testing.T) {
	for _, ev := range []Event{
		NewReadingEvent(sampleReading()),
		NewStatusEvent(NewMotorStatus("M2", 50)),
	} {
		line, err := EncodeLine(ev)
		require.NoError(t, err)

		got, err := DecodeLine(string(line))
		require.NoError(t, err)
		assert.Equal(t, ev.Kind, got.Kind)
		assert.Equal(t, ev.Payload(), got.Payload())
	}
}

func TestDecodeLine_Errors(t *testing.T) {
	for _, line := range []string{
		"no prefix here",
		"PING:{}",
		"DATA:{not json",
		"STATUS:[1,2]",
	} {
		_, err := DecodeLine(line)
		assert.ErrorIs(t, err, errors.ErrMalformedFrame, line)
	}
}

func TestSensorReading_ChannelAccess(t *testing.T) {
	r := sampleReading()
	assert.Equal(t, 2.56, r.Value(ChannelCOM))
	assert.Equal(t, 0.04, r.Value(ChannelCOGM))
	assert.Equal(t, 0.0, r.Value(Channel(42)))

	r.SetValue(ChannelNO2, 9.5)
	r.SetValue(Channel(-1), 1)
	assert.Equal(t, 9.5, r.NO2)

	vals := r.Values()
	assert.Equal(t, 2.56, vals[0])
	assert.Equal(t, 9.5, vals[3])
}

func TestChannel_NamesMatchJSON(t *testing.T) {
	line, err := EncodeLine(NewReadingEvent(sampleReading()))
	require.NoError(t, err)

	prev := 0
	for _, c := range Channels {
		idx := strings.Index(string(line), `"`+c.Name()+`":`)
		require.Greater(t, idx, prev, "channel %s out of wire order", c)
		prev = idx
	}
	assert.Equal(t, "unknown", Channel(99).Name())
}

func TestEvent_TypeAndKind(t *testing.T) {
	assert.Equal(t, "enose.reading.v1", NewReadingEvent(SensorReading{}).Type().Key())
	assert.Equal(t, "enose.status.v1", NewStatusEvent(StatusEvent{}).Type().Key())
	assert.Equal(t, "enose.command.v1", NewCommandEvent("x", "").Type().Key())
	assert.Equal(t, "enose.unknown.v1", Event{}.Type().String())

	assert.Equal(t, "reading", KindReading.String())
	assert.Equal(t, "command", KindCommand.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.True(t, ReadingType.IsValid())
	assert.False(t, Type{}.IsValid())
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "daun_kari", SubjectToken("Daun Kari"))
	assert.Equal(t, "a_b_c_d", SubjectToken("a.b*c>d"))
	assert.Equal(t, "unknown", SubjectToken("  "))
}
