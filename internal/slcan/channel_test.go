package slcan

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
)

// fakePort scripts an adapter: bytes pushed into rx come back from Read,
// Write records traffic and lets the test react per command.
type fakePort struct {
	rx      bytes.Buffer
	wr      bytes.Buffer
	closed  bool
	readErr error
	onWrite func(cmd string)
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.rx.Len() == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		return 0, nil // timeout slice, like tarm with ReadTimeout set
	}
	return p.rx.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.wr.Write(b)
	if p.onWrite != nil {
		p.onWrite(string(b))
	}
	return len(b), nil
}

func (p *fakePort) Close() error { p.closed = true; return nil }

// ackingPort answers CR to every command.
func ackingPort() *fakePort {
	p := &fakePort{}
	p.onWrite = func(string) { p.rx.WriteByte(cr) }
	return p
}

func stubOpenPort(p *fakePort) func() {
	old := openPort
	openPort = func(name string, lineBaud int) (Port, error) { return p, nil }
	return func() { openPort = old }
}

func openChannel(t *testing.T, p *fakePort) *Channel {
	t.Helper()
	restore := stubOpenPort(p)
	defer restore()
	ch := &Channel{device: "/dev/ttyFAKE", lineBaud: defaultLineBaud}
	if err := ch.Configure(500000, false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ch
}

func TestChannelOpenSequence(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)
	if got := p.wr.String(); got != "C\rS6\rO\r" {
		t.Fatalf("setup sequence = %q, want C, S6, O", got)
	}
	if err := ch.Open(); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if p.closed {
		t.Fatal("port closed after successful open")
	}
}

func TestChannelOpenRequiresConfigure(t *testing.T) {
	ch := &Channel{device: "/dev/ttyFAKE"}
	if err := ch.Open(); !errors.Is(err, hardware.ErrNotConfigured) {
		t.Fatalf("Open = %v, want ErrNotConfigured", err)
	}
}

func TestChannelConfigureRejectsBaud(t *testing.T) {
	ch := &Channel{device: "/dev/ttyFAKE"}
	if err := ch.Configure(7, false); !errors.Is(err, hardware.ErrBadBaud) {
		t.Fatalf("Configure(7) = %v, want ErrBadBaud", err)
	}
	// Valid bitrate, but not expressible as an Sn code.
	if err := ch.Configure(83333, false); !errors.Is(err, hardware.ErrBadBaud) {
		t.Fatalf("Configure(83333) = %v, want ErrBadBaud", err)
	}
}

func TestChannelOpenBitrateRejected(t *testing.T) {
	defer func(old time.Duration) { ackTimeout = old }(ackTimeout)
	ackTimeout = 10 * time.Millisecond

	p := &fakePort{}
	p.onWrite = func(cmd string) {
		if strings.HasPrefix(cmd, "S") {
			p.rx.WriteByte(bell)
			return
		}
		p.rx.WriteByte(cr)
	}
	restore := stubOpenPort(p)
	defer restore()

	ch := &Channel{device: "/dev/ttyFAKE"}
	if err := ch.Configure(125000, false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	err := ch.Open()
	if !errors.Is(err, errNak) {
		t.Fatalf("Open = %v, want errNak", err)
	}
	if !p.closed {
		t.Fatal("port must be closed after failed open")
	}
}

func TestChannelOpenAckTimeout(t *testing.T) {
	defer func(old time.Duration) { ackTimeout = old }(ackTimeout)
	ackTimeout = 5 * time.Millisecond

	p := &fakePort{} // never answers
	restore := stubOpenPort(p)
	defer restore()

	ch := &Channel{device: "/dev/ttyFAKE"}
	if err := ch.Configure(500000, false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := ch.Open(); !errors.Is(err, errAckTimeout) {
		t.Fatalf("Open = %v, want errAckTimeout", err)
	}
}

func TestChannelReadPackets(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)

	p.rx.WriteString("t10021122\rT000012344AABBCCDD\r")
	got, err := ch.ReadPackets(10, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadPackets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
	if got[0].ID != 0x100 || got[0].Extended || got[0].Len != 2 || got[0].Data[0] != 0x11 || got[0].Data[1] != 0x22 {
		t.Fatalf("first frame mismatch: %+v", got[0])
	}
	if got[1].ID != 0x1234 || !got[1].Extended || got[1].Len != 4 || got[1].Data[3] != 0xDD {
		t.Fatalf("second frame mismatch: %+v", got[1])
	}
}

func TestChannelReadPacketsHonorsMax(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)

	p.rx.WriteString("t0010\rt0020\rt0030\r")
	got, err := ch.ReadPackets(2, 20*time.Millisecond)
	if err != nil || len(got) != 2 {
		t.Fatalf("first read = %d frames, %v, want 2, nil", len(got), err)
	}

	// Third frame was decoded past max and must survive for the next call,
	// even with nothing new on the wire and no time budget.
	got, err = ch.ReadPackets(2, 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("second read = %d frames, %v, want 1, nil", len(got), err)
	}
	if got[0].ID != 0x003 {
		t.Fatalf("queued frame mismatch: %+v", got[0])
	}
}

func TestChannelReadNotOpen(t *testing.T) {
	ch := &Channel{device: "/dev/ttyFAKE"}
	if _, err := ch.ReadPackets(10, time.Millisecond); !errors.Is(err, hardware.ErrNotOpen) {
		t.Fatalf("ReadPackets = %v, want ErrNotOpen", err)
	}
	if err := ch.WritePackets(nil, time.Millisecond); !errors.Is(err, hardware.ErrNotOpen) {
		t.Fatalf("WritePackets = %v, want ErrNotOpen", err)
	}
}

func TestChannelReadErrorSurfaces(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)
	p.readErr = io.ErrClosedPipe
	if _, err := ch.ReadPackets(10, 10*time.Millisecond); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("ReadPackets = %v, want wrapped ErrClosedPipe", err)
	}
}

func TestChannelWritePackets(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)
	p.wr.Reset()
	if err := ch.WritePackets([]can.Frame{fr(0x7E0, false, 0x01, 0x02)}, 50*time.Millisecond); err != nil {
		t.Fatalf("WritePackets: %v", err)
	}
	if got := p.wr.String(); got != "t7E020102\r" {
		t.Fatalf("wire = %q, want t7E020102", got)
	}
}

func TestChannelCloseIdempotent(t *testing.T) {
	p := ackingPort()
	ch := openChannel(t, p)
	p.wr.Reset()
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.HasPrefix(p.wr.String(), "C\r") {
		t.Fatalf("close must send C, wrote %q", p.wr.String())
	}
	if !p.closed {
		t.Fatal("port not closed")
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
