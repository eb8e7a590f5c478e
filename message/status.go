package message

// Status discriminators.
const (
	StatusKindStatus        = "status"
	StatusKindMotor         = "motor"
	StatusKindCalibProgress = "calib_progress"
)

// StatusEvent carries one device status update. Exactly one field group is
// populated, selected by MsgType: Status/Message for "status", Motor/Speed
// for "motor", Current/Total for "calib_progress". Nil fields are omitted
// from JSON.
type StatusEvent struct {
	MsgType string  `json:"msg_type"`
	Status  *string `json:"status,omitempty"`
	Message *string `json:"message,omitempty"`
	Motor   *string `json:"motor,omitempty"`
	Speed   *int    `json:"speed,omitempty"`
	Current *int    `json:"current,omitempty"`
	Total   *int    `json:"total,omitempty"`
}

// NewDeviceStatus builds a "status" event.
func NewDeviceStatus(status, msg string) StatusEvent {
	return StatusEvent{MsgType: StatusKindStatus, Status: &status, Message: &msg}
}

// NewMotorStatus builds a "motor" event.
func NewMotorStatus(motor string, speed int) StatusEvent {
	return StatusEvent{MsgType: StatusKindMotor, Motor: &motor, Speed: &speed}
}

// NewCalibProgress builds a "calib_progress" event.
func NewCalibProgress(current, total int) StatusEvent {
	return StatusEvent{MsgType: StatusKindCalibProgress, Current: &current, Total: &total}
}

// CommandEvent is one trimmed, non-empty line received from a connected
// party. The relay forwards it without interpreting it.
type CommandEvent struct {
	Command string `json:"command"`
	Origin  string `json:"origin,omitempty"`
}
