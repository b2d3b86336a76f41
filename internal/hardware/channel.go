package hardware

import (
	"time"

	"github.com/openvehicletools/can-tracer/internal/can"
)

// Channel is one open, configured CAN bus connection.
//
// Ordering contract: Configure must succeed before Open, Open before any
// read or write. Close is idempotent and must be called on every exit path
// of the channel's owner so the native handle is never leaked. Violations
// surface ErrNotConfigured or ErrNotOpen.
//
// ReadPackets returns whatever frames arrived within timeout — possibly
// none — and must not block past it. WritePackets blocks at most timeout.
// Neither may be called concurrently with the other; the owning session
// serializes all channel IO on its tick.
type Channel interface {
	Configure(baud uint32, extended bool) error
	Open() error
	Close() error
	WritePackets(frames []can.Frame, timeout time.Duration) error
	ReadPackets(max int, timeout time.Duration) ([]can.Frame, error)
}
