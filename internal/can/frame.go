package can

import "errors"

// Identifier limits and SocketCAN flag bits (same values as <linux/can.h>).
// The flags only appear on the SocketCAN wire; Frame.ID always carries the
// raw identifier without them.
const (
	EFFFlag = 0x80000000
	RTRFlag = 0x40000000
	ErrFlag = 0x20000000
	SFFMask = 0x000007FF
	EFFMask = 0x1FFFFFFF
)

// MaxDataLen is the classic CAN payload limit.
const MaxDataLen = 8

var (
	ErrInvalidID  = errors.New("can: identifier out of range")
	ErrInvalidLen = errors.New("can: payload length out of range")
)

// Frame is one classic CAN message: an 11-bit (standard) or 29-bit
// (extended) identifier and up to 8 payload bytes. Only the first Len
// bytes of Data are valid. Frames are passed by value and treated as
// immutable once built.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8
	Data     [MaxDataLen]byte
}

// New builds a frame from id and data. It does not validate; callers that
// accept external input should check Validate before use.
func New(id uint32, data []byte, extended bool) Frame {
	var f Frame
	f.ID = id
	f.Extended = extended
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f
}

// Validate reports whether the frame is a legal classic CAN frame.
func (f Frame) Validate() error {
	if f.Len > MaxDataLen {
		return ErrInvalidLen
	}
	max := uint32(SFFMask)
	if f.Extended {
		max = EFFMask
	}
	if f.ID > max {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid portion of Data.
func (f *Frame) Payload() []byte { return f.Data[:f.Len] }

// Matches reports whether the frame passes a mask/filter pair:
// (ID & mask) == filter. A zero mask with zero filter accepts everything.
func (f Frame) Matches(mask, filter uint32) bool {
	return f.ID&mask == filter
}
