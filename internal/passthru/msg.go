package passthru

import (
	"encoding/binary"
	"errors"

	"github.com/openvehicletools/can-tracer/internal/can"
)

// msgDataCap is the PASSTHRU_MSG payload capacity fixed by J2534-1.
const msgDataCap = 4128

// msg mirrors the PASSTHRU_MSG wire struct passed across the driver
// boundary. Field order and widths must not change.
type msg struct {
	ProtocolID     uint32
	RxStatus       uint32
	TxFlags        uint32
	Timestamp      uint32
	DataSize       uint32
	ExtraDataIndex uint32
	Data           [msgDataCap]byte
}

var errBadMsgSize = errors.New("passthru: message size outside CAN frame bounds")

// encodeMsg packs a CAN frame the way the protocol layer expects it:
// 4 identifier bytes big-endian, then the payload.
func encodeMsg(f can.Frame) msg {
	var m msg
	m.ProtocolID = protocolCAN
	if f.Extended {
		m.TxFlags = flagCAN29BitID
	}
	binary.BigEndian.PutUint32(m.Data[0:4], f.ID)
	copy(m.Data[4:], f.Data[:f.Len])
	m.DataSize = 4 + uint32(f.Len)
	return m
}

// decodeMsg unpacks one received PASSTHRU_MSG into a CAN frame. Sizes
// outside 4..12 bytes cannot be classic CAN and are rejected.
func decodeMsg(m *msg) (can.Frame, error) {
	if m.DataSize < 4 || m.DataSize > 4+can.MaxDataLen {
		return can.Frame{}, errBadMsgSize
	}
	var f can.Frame
	f.ID = binary.BigEndian.Uint32(m.Data[0:4])
	f.Extended = m.RxStatus&flagCAN29BitID != 0
	f.Len = uint8(m.DataSize - 4)
	copy(f.Data[:], m.Data[4:m.DataSize])
	return f, nil
}

// isEcho reports whether the driver looped back a frame this channel
// transmitted itself.
func isEcho(m *msg) bool { return m.RxStatus&rxStatusTxEcho != 0 }
