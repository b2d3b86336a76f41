//go:build !windows

package passthru

import (
	"fmt"
	"runtime"

	"github.com/openvehicletools/can-tracer/internal/hardware"
)

// Driver is provided on non-windows builds so wiring code compiles.
// Passthru devices only ship windows DLLs.
type Driver struct{}

func Load(desc hardware.Descriptor) (*Driver, error) {
	return nil, &hardware.LoadError{
		Driver: desc.Name,
		Path:   desc.Library,
		Err:    fmt.Errorf("passthru is unsupported on %s", runtime.GOOS),
	}
}

func (d *Driver) Describe() hardware.Descriptor { return hardware.Descriptor{} }

func (d *Driver) CreateCANChannel() (hardware.Channel, error) {
	return nil, fmt.Errorf("passthru is unsupported on %s", runtime.GOOS)
}

func (d *Driver) Close() error { return nil }
