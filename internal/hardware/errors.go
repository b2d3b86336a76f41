package hardware

import (
	"errors"
	"fmt"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	// Driver loading. A load failure never heals without operator action
	// (installing or repairing the driver), so callers must not retry.
	ErrLibraryNotFound     = errors.New("driver library not found")
	ErrSymbolMissing       = errors.New("driver export missing")
	ErrIncompatibleVersion = errors.New("incompatible driver API version")

	// Backend variants that exist in the API enum but have no
	// implementation report this instead of being omitted.
	ErrNotImplemented = errors.New("not implemented")

	// Channel ordering contract: Configure before Open before IO. IO on a
	// closed channel reports ErrNotOpen.
	ErrNotConfigured = errors.New("channel not configured")
	ErrNotOpen       = errors.New("channel not open")

	ErrBadBaud = errors.New("unsupported CAN bit rate")
)

// LoadError reports a driver binding failure verbatim: which driver, which
// library path, and which of the load sentinels applies.
type LoadError struct {
	Driver string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load driver %q (%s): %v", e.Driver, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
