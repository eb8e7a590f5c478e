package testutil

import (
	"fmt"
	"strconv"

	"github.com/ianfajar-codes/SPS-Enose-Project/message"
)

// DataLine returns a data frame with co_m set to com and every other channel
// set to 1.
func DataLine(sample string, com float64) string {
	return `{"type":"data","sample":"` + sample + `","co_m":` + strconv.FormatFloat(com, 'f', -1, 64) +
		`,"eth_m":1,"voc_m":1,"no2":1,"eth_gm":1,"voc_gm":1,"co_gm":1,"timestamp":1}`
}

// StatusLine returns a device status frame.
func StatusLine(status, msg string) string {
	return fmt.Sprintf(`{"type":"status","status":%q,"msg":%q}`, status, msg)
}

// MotorLine returns a motor speed frame.
func MotorLine(motor string, speed int) string {
	return fmt.Sprintf(`{"type":"motor","motor":%q,"speed":%d}`, motor, speed)
}

// CalibLine returns a calibration progress frame.
func CalibLine(current, total int) string {
	return fmt.Sprintf(`{"type":"calib_progress","current":%d,"total":%d}`, current, total)
}

// Reading returns a reading event whose channels count up from base.
func Reading(ts uint64, sample string, base float64) message.Event {
	return message.NewReadingEvent(message.SensorReading{
		Timestamp: ts, Sample: sample,
		COM: base, EthM: base + 1, VOCM: base + 2, NO2: base + 3,
		EthGM: base + 4, VOCGM: base + 5, COGM: base + 6,
	})
}
