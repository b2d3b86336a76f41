package passthru

import "fmt"

// J2534 API return codes.
const (
	statusNoError          = 0x00
	errNotSupported        = 0x01
	errInvalidChannelID    = 0x02
	errInvalidProtocolID   = 0x03
	errNullParameter       = 0x04
	errInvalidIoctlValue   = 0x05
	errInvalidFlags        = 0x06
	errFailed              = 0x07
	errDeviceNotConnected  = 0x08
	errTimeout             = 0x09
	errInvalidMsg          = 0x0A
	errInvalidTimeInterval = 0x0B
	errExceededLimit       = 0x0C
	errInvalidMsgID        = 0x0D
	errDeviceInUse         = 0x0E
	errInvalidIoctlID      = 0x0F
	errBufferEmpty         = 0x10
	errBufferFull          = 0x11
	errBufferOverflow      = 0x12
	errPinInvalid          = 0x13
	errChannelInUse        = 0x14
	errMsgProtocolID       = 0x15
	errInvalidFilterID     = 0x16
	errNoFlowControl       = 0x17
	errNotUnique           = 0x18
	errInvalidBaudrate     = 0x19
	errInvalidDeviceID     = 0x1A
)

var statusText = map[uint32]string{
	statusNoError:          "STATUS_NOERROR",
	errNotSupported:        "ERR_NOT_SUPPORTED",
	errInvalidChannelID:    "ERR_INVALID_CHANNEL_ID",
	errInvalidProtocolID:   "ERR_INVALID_PROTOCOL_ID",
	errNullParameter:       "ERR_NULL_PARAMETER",
	errInvalidIoctlValue:   "ERR_INVALID_IOCTL_VALUE",
	errInvalidFlags:        "ERR_INVALID_FLAGS",
	errFailed:              "ERR_FAILED",
	errDeviceNotConnected:  "ERR_DEVICE_NOT_CONNECTED",
	errTimeout:             "ERR_TIMEOUT",
	errInvalidMsg:          "ERR_INVALID_MSG",
	errInvalidTimeInterval: "ERR_INVALID_TIME_INTERVAL",
	errExceededLimit:       "ERR_EXCEEDED_LIMIT",
	errInvalidMsgID:        "ERR_INVALID_MSG_ID",
	errDeviceInUse:         "ERR_DEVICE_IN_USE",
	errInvalidIoctlID:      "ERR_INVALID_IOCTL_ID",
	errBufferEmpty:         "ERR_BUFFER_EMPTY",
	errBufferFull:          "ERR_BUFFER_FULL",
	errBufferOverflow:      "ERR_BUFFER_OVERFLOW",
	errPinInvalid:          "ERR_PIN_INVALID",
	errChannelInUse:        "ERR_CHANNEL_IN_USE",
	errMsgProtocolID:       "ERR_MSG_PROTOCOL_ID",
	errInvalidFilterID:     "ERR_INVALID_FILTER_ID",
	errNoFlowControl:       "ERR_NO_FLOW_CONTROL",
	errNotUnique:           "ERR_NOT_UNIQUE",
	errInvalidBaudrate:     "ERR_INVALID_BAUDRATE",
	errInvalidDeviceID:     "ERR_INVALID_DEVICE_ID",
}

// Error is a J2534 call that returned a non-zero status. Detail carries the
// driver's PassThruGetLastError text when the status was ERR_FAILED.
type Error struct {
	Op     string
	Status uint32
	Detail string
}

func (e *Error) Error() string {
	name, ok := statusText[e.Status]
	if !ok {
		name = "unknown status"
	}
	if e.Detail != "" {
		return fmt.Sprintf("passthru: %s: %s (0x%02X): %s", e.Op, name, e.Status, e.Detail)
	}
	return fmt.Sprintf("passthru: %s: %s (0x%02X)", e.Op, name, e.Status)
}

// apiErr wraps a status into an Error; callers filter benign statuses
// (timeouts, empty buffers) before reaching here.
func apiErr(op string, status uint32, detail string) error {
	return &Error{Op: op, Status: status, Detail: detail}
}
