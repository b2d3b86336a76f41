package passthru

import (
	"bytes"
	"errors"
	"testing"

	"github.com/openvehicletools/can-tracer/internal/can"
)

func TestEncodeMsg(t *testing.T) {
	f := can.New(0x7E0, []byte{0x02, 0x10, 0x03}, false)
	m := encodeMsg(f)
	if m.ProtocolID != protocolCAN {
		t.Fatalf("ProtocolID = %d, want %d", m.ProtocolID, protocolCAN)
	}
	if m.TxFlags != 0 {
		t.Fatalf("standard frame must not set 29-bit flag, got %#x", m.TxFlags)
	}
	if m.DataSize != 7 {
		t.Fatalf("DataSize = %d, want 7", m.DataSize)
	}
	if !bytes.Equal(m.Data[:7], []byte{0x00, 0x00, 0x07, 0xE0, 0x02, 0x10, 0x03}) {
		t.Fatalf("wire bytes mismatch: % X", m.Data[:7])
	}

	ext := encodeMsg(can.New(0x18DAF110, []byte{0xAA}, true))
	if ext.TxFlags != flagCAN29BitID {
		t.Fatalf("extended frame must set 29-bit flag, got %#x", ext.TxFlags)
	}
	if !bytes.Equal(ext.Data[:5], []byte{0x18, 0xDA, 0xF1, 0x10, 0xAA}) {
		t.Fatalf("wire bytes mismatch: % X", ext.Data[:5])
	}
}

func TestDecodeMsgRoundTrip(t *testing.T) {
	in := can.New(0x1FFFFFFF, []byte{1, 2, 3, 4, 5, 6, 7, 8}, true)
	m := encodeMsg(in)
	// Receive direction reports the identifier width in RxStatus.
	m.RxStatus = flagCAN29BitID
	out, err := decodeMsg(&m)
	if err != nil {
		t.Fatalf("decodeMsg: %v", err)
	}
	if out.ID != in.ID || !out.Extended || out.Len != in.Len {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
	if !bytes.Equal(out.Payload(), in.Payload()) {
		t.Fatalf("payload mismatch: % X vs % X", out.Payload(), in.Payload())
	}
}

func TestDecodeMsgRejectsBadSizes(t *testing.T) {
	for _, size := range []uint32{0, 3, 13, 100} {
		m := msg{DataSize: size}
		if _, err := decodeMsg(&m); !errors.Is(err, errBadMsgSize) {
			t.Fatalf("DataSize %d: err = %v, want errBadMsgSize", size, err)
		}
	}
	// 4 bytes is a legal zero-payload frame.
	m := msg{DataSize: 4}
	f, err := decodeMsg(&m)
	if err != nil || f.Len != 0 {
		t.Fatalf("zero payload frame: %+v err=%v", f, err)
	}
}

func TestIsEcho(t *testing.T) {
	m := msg{RxStatus: rxStatusTxEcho}
	if !isEcho(&m) {
		t.Fatalf("expected echo bit to be detected")
	}
	m.RxStatus = flagCAN29BitID
	if isEcho(&m) {
		t.Fatalf("29-bit flag misread as echo")
	}
}

func TestStatusErrorText(t *testing.T) {
	err := apiErr("PassThruConnect", errInvalidBaudrate, "")
	want := "passthru: PassThruConnect: ERR_INVALID_BAUDRATE (0x19)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Status != errInvalidBaudrate {
		t.Fatalf("errors.As failed on %v", err)
	}
	detailed := apiErr("PassThruOpen", errFailed, "device unplugged")
	if got := detailed.Error(); got != "passthru: PassThruOpen: ERR_FAILED (0x07): device unplugged" {
		t.Fatalf("detailed Error() = %q", got)
	}
}
