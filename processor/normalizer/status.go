package normalizer

import (
	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/parser"
)

// BuildStatusEvent maps a status, motor or calib_progress frame to a
// StatusEvent. Optional fields that are absent, null or mistyped stay absent.
// Integer fields accept only integral literals that fit an int.
func BuildStatusEvent(kind parser.FrameKind, frame *parser.Frame) message.StatusEvent {
	ev := message.StatusEvent{MsgType: kind.String()}
	if frame == nil {
		return ev
	}

	switch kind {
	case parser.KindStatus:
		ev.Status = optString(frame, "status")
		ev.Message = optString(frame, "msg")
	case parser.KindMotor:
		ev.Motor = optString(frame, "motor")
		ev.Speed = optInt(frame, "speed")
	case parser.KindCalibProgress:
		ev.Current = optInt(frame, "current")
		ev.Total = optInt(frame, "total")
	}
	return ev
}

func optString(frame *parser.Frame, key string) *string {
	s, err := frame.GetString(key)
	if err != nil {
		return nil
	}
	return &s
}

func optInt(frame *parser.Frame, key string) *int {
	v, err := frame.GetInt(key)
	if err != nil {
		return nil
	}
	i := int(v)
	if int64(i) != v {
		return nil
	}
	return &i
}
