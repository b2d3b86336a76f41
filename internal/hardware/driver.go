package hardware

import "errors"

// Driver is a bound diagnostic interface capable of producing CAN channels.
// A driver is created once (loaded native library, opened device) and then
// backs any number of channel create/close cycles until Close releases it.
type Driver interface {
	Describe() Descriptor
	CreateCANChannel() (Channel, error)
	Close() error
}

// Handle wraps the one Driver an application session runs against. It
// outlives individual tracer connect/disconnect cycles; the native library
// handle it owns is released only by Close.
type Handle struct {
	drv Driver
}

var errNoDriver = errors.New("hardware: handle has no driver")

// NewHandle wraps drv. A nil driver yields a handle whose operations fail
// cleanly instead of panicking.
func NewHandle(drv Driver) *Handle { return &Handle{drv: drv} }

// Describe returns the descriptor of the wrapped driver.
func (h *Handle) Describe() Descriptor {
	if h == nil || h.drv == nil {
		return Descriptor{}
	}
	return h.drv.Describe()
}

// CreateCANChannel delegates to the driver. The channel comes back
// unconfigured and unopened.
func (h *Handle) CreateCANChannel() (Channel, error) {
	if h == nil || h.drv == nil {
		return nil, errNoDriver
	}
	return h.drv.CreateCANChannel()
}

// Close releases the underlying driver and its native resources.
func (h *Handle) Close() error {
	if h == nil || h.drv == nil {
		return nil
	}
	return h.drv.Close()
}
