// Package socketcan exposes a Linux raw CAN interface (AF_CAN) as a
// hardware channel. The kernel owns the bitrate; Configure only checks it
// against the supported table.
package socketcan

import (
	"encoding/binary"

	"github.com/openvehicletools/can-tracer/internal/can"
)

// frameSize is sizeof(struct can_frame) for classic CAN:
//
//	can_id  u32   [0:4]   includes EFF/RTR/ERR flag bits
//	can_dlc u8    [4]
//	pad     3B    [5:8]
//	data    [8]   [8:16]
//
// The kernel hands fields over in host byte order; this assumes
// little-endian, which covers every platform this runs on. Switch to
// BigEndian if that ever changes.
const frameSize = 16

func marshalFrame(buf *[frameSize]byte, f can.Frame) {
	id := f.ID
	if f.Extended {
		id = (id & can.EFFMask) | can.EFFFlag
	} else {
		id &= can.SFFMask
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.Data[:f.Len])
}

// unmarshalFrame decodes one can_frame. Kernel error reports (ERR flag)
// are not data frames; ok is false for them. RTR frames keep their DLC
// with a zeroed payload since the frame model does not track the RTR bit.
func unmarshalFrame(buf *[frameSize]byte) (f can.Frame, ok bool) {
	raw := binary.LittleEndian.Uint32(buf[0:4])
	if raw&can.ErrFlag != 0 {
		return f, false
	}
	if raw&can.EFFFlag != 0 {
		f.ID = raw & can.EFFMask
		f.Extended = true
	} else {
		f.ID = raw & can.SFFMask
	}
	dlc := buf[4]
	if dlc > can.MaxDataLen {
		dlc = can.MaxDataLen
	}
	f.Len = dlc
	if raw&can.RTRFlag == 0 {
		copy(f.Data[:dlc], buf[8:8+dlc])
	}
	return f, true
}
