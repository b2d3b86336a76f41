//go:build windows

package passthru

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// Channel is a raw CAN channel on an open Passthru device.
type Channel struct {
	drv       *Driver
	baud      uint32
	extended  bool
	channelID uint32
	filterID  uint32
	isOpen    bool

	// rxBuf is reused across reads. PASSTHRU_MSG is 4KiB+, so allocating
	// a fresh batch every poll tick would churn several MiB per second.
	rxBuf []msg
}

var _ hardware.Channel = (*Channel)(nil)

func (c *Channel) Configure(baud uint32, extended bool) error {
	if c.isOpen {
		return fmt.Errorf("passthru: configure while open")
	}
	if !hardware.ValidBaud(baud) {
		return fmt.Errorf("%w: %d", hardware.ErrBadBaud, baud)
	}
	c.baud = baud
	c.extended = extended
	return nil
}

// Open connects the protocol, installs a pass-all filter and clears any
// frames buffered before we were listening.
func (c *Channel) Open() error {
	if c.isOpen {
		return nil
	}
	if c.baud == 0 {
		return hardware.ErrNotConfigured
	}
	status, _, _ := c.drv.connectProc.Call(
		uintptr(c.drv.deviceID),
		uintptr(protocolCAN),
		uintptr(c.connectFlags()),
		uintptr(c.baud),
		uintptr(unsafe.Pointer(&c.channelID)),
	)
	if uint32(status) != statusNoError {
		return c.drv.apiError("PassThruConnect", uint32(status))
	}
	if err := c.startPassAllFilter(); err != nil {
		_, _, _ = c.drv.disconnectProc.Call(uintptr(c.channelID))
		return err
	}
	_ = c.ioctl(ioctlClearRxBuffer)
	c.isOpen = true
	return nil
}

// connectFlags requests both ID lengths so reception is unrestricted;
// 29-bit becomes the channel default when the session asked for it.
func (c *Channel) connectFlags() uint32 {
	flags := uint32(flagCANIDBoth)
	if c.extended {
		flags |= flagCAN29BitID
	}
	return flags
}

// startPassAllFilter installs a PASS_FILTER with an all-zero mask, which
// matches every ID. Without a filter 04.04 devices deliver nothing.
func (c *Channel) startPassAllFilter() error {
	var mask, pattern msg
	mask.ProtocolID = protocolCAN
	mask.DataSize = 4
	pattern.ProtocolID = protocolCAN
	pattern.DataSize = 4
	status, _, _ := c.drv.startFilterProc.Call(
		uintptr(c.channelID),
		uintptr(passFilter),
		uintptr(unsafe.Pointer(&mask)),
		uintptr(unsafe.Pointer(&pattern)),
		0,
		uintptr(unsafe.Pointer(&c.filterID)),
	)
	if uint32(status) != statusNoError {
		return c.drv.apiError("PassThruStartMsgFilter", uint32(status))
	}
	return nil
}

func (c *Channel) ioctl(id uint32) error {
	status, _, _ := c.drv.ioctlProc.Call(uintptr(c.channelID), uintptr(id), 0, 0)
	if uint32(status) != statusNoError {
		return c.drv.apiError("PassThruIoctl", uint32(status))
	}
	return nil
}

// ReadPackets drains up to max frames, waiting at most timeout for the
// first one. Timeout and empty-buffer statuses are not errors; whatever
// arrived before the deadline is returned. TX echoes and frames that do
// not decode as classic CAN are dropped.
func (c *Channel) ReadPackets(max int, timeout time.Duration) ([]can.Frame, error) {
	if !c.isOpen {
		return nil, hardware.ErrNotOpen
	}
	if max <= 0 {
		return nil, nil
	}
	if cap(c.rxBuf) < max {
		c.rxBuf = make([]msg, max)
	}
	c.rxBuf = c.rxBuf[:max]
	numMsgs := uint32(max)
	status, _, _ := c.drv.readProc.Call(
		uintptr(c.channelID),
		uintptr(unsafe.Pointer(&c.rxBuf[0])),
		uintptr(unsafe.Pointer(&numMsgs)),
		uintptr(timeoutMs(timeout)),
	)
	st := uint32(status)
	if st != statusNoError && st != errBufferEmpty && st != errTimeout {
		return nil, c.drv.apiError("PassThruReadMsgs", st)
	}
	if int(numMsgs) > max {
		numMsgs = uint32(max)
	}
	var out []can.Frame
	for i := range c.rxBuf[:numMsgs] {
		m := &c.rxBuf[i]
		if isEcho(m) {
			continue
		}
		f, err := decodeMsg(m)
		if err != nil {
			metrics.IncMalformed()
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// WritePackets queues frames for transmit and waits up to timeout for the
// device to accept them all.
func (c *Channel) WritePackets(frames []can.Frame, timeout time.Duration) error {
	if !c.isOpen {
		return hardware.ErrNotOpen
	}
	if len(frames) == 0 {
		return nil
	}
	txBuf := make([]msg, len(frames))
	for i, f := range frames {
		txBuf[i] = encodeMsg(f)
	}
	numMsgs := uint32(len(frames))
	status, _, _ := c.drv.writeProc.Call(
		uintptr(c.channelID),
		uintptr(unsafe.Pointer(&txBuf[0])),
		uintptr(unsafe.Pointer(&numMsgs)),
		uintptr(timeoutMs(timeout)),
	)
	if uint32(status) != statusNoError {
		return c.drv.apiError("PassThruWriteMsgs", uint32(status))
	}
	if int(numMsgs) != len(frames) {
		return fmt.Errorf("passthru: wrote %d of %d frames", numMsgs, len(frames))
	}
	return nil
}

// Close disconnects the channel. Safe to call on a channel that never
// opened.
func (c *Channel) Close() error {
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	_, _, _ = c.drv.stopFilterProc.Call(uintptr(c.channelID), uintptr(c.filterID))
	status, _, _ := c.drv.disconnectProc.Call(uintptr(c.channelID))
	if uint32(status) != statusNoError {
		return c.drv.apiError("PassThruDisconnect", uint32(status))
	}
	return nil
}

func timeoutMs(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Millisecond)
}
