package slcan

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/logging"
)

const defaultLineBaud = 115200

// ackTimeout bounds how long a setup command may wait for the adapter's
// CR/BELL response. Var so tests can shorten it.
var ackTimeout = 500 * time.Millisecond

var (
	errNak        = errors.New("slcan: command rejected by adapter")
	errAckTimeout = errors.New("slcan: no response from adapter")
)

// Driver hands out channels on one serial SLCAN adapter. The descriptor's
// Library field carries the device path.
type Driver struct {
	desc     hardware.Descriptor
	lineBaud int
}

var _ hardware.Driver = (*Driver)(nil)

// NewDriver wraps a serial CAN adapter. lineBaud is the UART rate to the
// adapter (not the CAN bitrate); <=0 selects 115200.
func NewDriver(desc hardware.Descriptor, lineBaud int) *Driver {
	if lineBaud <= 0 {
		lineBaud = defaultLineBaud
	}
	return &Driver{desc: desc, lineBaud: lineBaud}
}

func (d *Driver) Describe() hardware.Descriptor { return d.desc }

func (d *Driver) CreateCANChannel() (hardware.Channel, error) {
	if d.desc.Library == "" {
		return nil, fmt.Errorf("slcan: no device path in descriptor %q", d.desc.Name)
	}
	return &Channel{device: d.desc.Library, lineBaud: d.lineBaud}, nil
}

func (d *Driver) Close() error { return nil }

// Channel is one open adapter. Not safe for concurrent use; the session
// owns it.
type Channel struct {
	device   string
	lineBaud int

	code   byte // bitrate digit from Configure, 0 = unconfigured
	codec  Codec
	port   Port
	rx     bytes.Buffer
	queued []can.Frame
	chunk  [256]byte
}

var _ hardware.Channel = (*Channel)(nil)

// Configure picks the bitrate. The extended hint is unused: SLCAN carries
// the ID length per frame (t vs T tokens), not per channel.
func (c *Channel) Configure(baud uint32, _ bool) error {
	if c.port != nil {
		return fmt.Errorf("slcan: configure while open")
	}
	if !hardware.ValidBaud(baud) {
		return fmt.Errorf("%w: %d", hardware.ErrBadBaud, baud)
	}
	code, ok := bitrateCode(baud)
	if !ok {
		return fmt.Errorf("%w: %d has no slcan setup code", hardware.ErrBadBaud, baud)
	}
	c.code = code
	return nil
}

// Open claims the serial device and runs the LAWICEL setup sequence:
// close any stale channel, set the bitrate, open the bus.
func (c *Channel) Open() error {
	if c.port != nil {
		return nil
	}
	if c.code == 0 {
		return hardware.ErrNotConfigured
	}
	p, err := openPort(c.device, c.lineBaud)
	if err != nil {
		return fmt.Errorf("slcan open %s: %w", c.device, err)
	}
	// A stale open channel NAKs S; close first and ignore the response
	// (closing an already-closed channel NAKs on some firmware).
	_ = command(p, []byte{'C', cr})
	if err := command(p, []byte{'S', c.code, cr}); err != nil {
		_ = p.Close()
		return fmt.Errorf("slcan set bitrate: %w", err)
	}
	if err := command(p, []byte{'O', cr}); err != nil {
		_ = p.Close()
		return fmt.Errorf("slcan open bus: %w", err)
	}
	c.port = p
	c.rx.Reset()
	c.queued = nil
	logging.L().Info("slcan_channel_open", "device", c.device, "code", string(c.code))
	return nil
}

// command writes one setup command and waits for the adapter's verdict.
// Reads are single bytes so nothing past the terminator is swallowed.
func command(p Port, cmd []byte) error {
	if _, err := p.Write(cmd); err != nil {
		return err
	}
	deadline := time.Now().Add(ackTimeout)
	var b [1]byte
	for {
		n, err := p.Read(b[:])
		if err != nil {
			return err
		}
		if n == 0 {
			if !time.Now().Before(deadline) {
				return errAckTimeout
			}
			continue
		}
		switch b[0] {
		case cr:
			return nil
		case bell:
			return errNak
		}
		// response payload byte (version digits etc), keep draining
	}
}

// ReadPackets returns up to max frames, polling the port until the
// timeout elapses. Frames decoded beyond max stay queued for the next
// call.
func (c *Channel) ReadPackets(max int, timeout time.Duration) ([]can.Frame, error) {
	if c.port == nil {
		return nil, hardware.ErrNotOpen
	}
	if max <= 0 {
		return nil, nil
	}
	deadline := time.Now().Add(timeout)
	var out []can.Frame
	for {
		take := len(c.queued)
		if room := max - len(out); take > room {
			take = room
		}
		if take > 0 {
			out = append(out, c.queued[:take]...)
			c.queued = c.queued[take:]
		}
		if len(out) >= max || !time.Now().Before(deadline) {
			return out, nil
		}
		n, err := c.port.Read(c.chunk[:])
		if n > 0 {
			_, _ = c.rx.Write(c.chunk[:n])
			_ = c.codec.DecodeStream(&c.rx, func(f can.Frame) {
				c.queued = append(c.queued, f)
			})
		}
		if err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("slcan read: %w", err)
		}
	}
}

// WritePackets encodes and writes frames back to back. tarm/serial has no
// write deadline; lines are at most 27 bytes and the OS buffer absorbs
// them, so the timeout is not consulted. Transmit acks surface in the read
// stream and are swallowed by the codec.
func (c *Channel) WritePackets(frames []can.Frame, _ time.Duration) error {
	if c.port == nil {
		return hardware.ErrNotOpen
	}
	for _, f := range frames {
		if _, err := c.port.Write(c.codec.Encode(f)); err != nil {
			return fmt.Errorf("slcan write: %w", err)
		}
	}
	return nil
}

// Close shuts the bus and releases the device. Safe to call repeatedly.
func (c *Channel) Close() error {
	if c.port == nil {
		return nil
	}
	_, _ = c.port.Write([]byte{'C', cr})
	err := c.port.Close()
	c.port = nil
	c.rx.Reset()
	c.queued = nil
	if err != nil {
		return fmt.Errorf("slcan close: %w", err)
	}
	return nil
}
