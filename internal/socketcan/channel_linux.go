//go:build linux

package socketcan

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// Channel is one bound raw CAN socket. Not safe for concurrent use; the
// session owns it.
type Channel struct {
	iface      string
	fd         int
	configured bool
}

var _ hardware.Channel = (*Channel)(nil)

func newChannel(iface string) (hardware.Channel, error) {
	return &Channel{iface: iface, fd: -1}, nil
}

// Configure checks the bitrate against the supported table. The actual
// interface bitrate is set by netlink (ip link) outside this process and
// cannot be changed on a raw socket. The extended hint is unused: a raw
// socket receives both ID lengths, and transmit frames carry their own
// EFF flag.
func (c *Channel) Configure(baud uint32, _ bool) error {
	if c.fd >= 0 {
		return fmt.Errorf("socketcan: configure while open")
	}
	if !hardware.ValidBaud(baud) {
		return fmt.Errorf("%w: %d", hardware.ErrBadBaud, baud)
	}
	c.configured = true
	return nil
}

func (c *Channel) Open() error {
	if c.fd >= 0 {
		return nil
	}
	if !c.configured {
		return hardware.ErrNotConfigured
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return fmt.Errorf("socket(AF_CAN): %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil {
		// Older kernels may not know this option; ignore ENOPROTOOPT
		if err != unix.ENOPROTOOPT {
			_ = unix.Close(fd)
			return fmt.Errorf("disable CAN FD: %w", err)
		}
	}
	ifi, err := net.InterfaceByName(c.iface)
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("if %q: %w", c.iface, err)
	}
	sa := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("bind(can@%s): %w", c.iface, err)
	}
	c.fd = fd
	return nil
}

// ReadPackets collects frames until max is reached or the timeout
// elapses, with poll(2) bounding every wait.
func (c *Channel) ReadPackets(max int, timeout time.Duration) ([]can.Frame, error) {
	if c.fd < 0 {
		return nil, hardware.ErrNotOpen
	}
	deadline := time.Now().Add(timeout)
	var out []can.Frame
	var buf [frameSize]byte
	for len(out) < max {
		pfd := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, remainingMs(deadline))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return out, fmt.Errorf("socketcan poll: %w", err)
		}
		if n == 0 {
			break
		}
		rn, err := unix.Read(c.fd, buf[:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return out, fmt.Errorf("socketcan read: %w", err)
		}
		if rn != frameSize {
			metrics.IncMalformed()
			continue
		}
		f, ok := unmarshalFrame(&buf)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// WritePackets sends frames back to back, waiting at most timeout in
// total for socket buffer space.
func (c *Channel) WritePackets(frames []can.Frame, timeout time.Duration) error {
	if c.fd < 0 {
		return hardware.ErrNotOpen
	}
	deadline := time.Now().Add(timeout)
	var buf [frameSize]byte
	for _, f := range frames {
		marshalFrame(&buf, f)
		for {
			pfd := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
			n, err := unix.Poll(pfd, remainingMs(deadline))
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				return fmt.Errorf("socketcan poll: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("socketcan write %s: timeout", c.iface)
			}
			if _, err := unix.Write(c.fd, buf[:]); err != nil {
				if err == unix.EINTR || err == unix.EAGAIN {
					continue
				}
				return fmt.Errorf("socketcan write: %w", err)
			}
			break
		}
	}
	return nil
}

func (c *Channel) Close() error {
	if c.fd < 0 {
		return nil
	}
	fd := c.fd
	c.fd = -1
	return unix.Close(fd)
}

func remainingMs(deadline time.Time) int {
	ms := time.Until(deadline).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return int(ms)
}
