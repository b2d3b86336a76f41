package socketcan

import (
	"fmt"

	"github.com/openvehicletools/can-tracer/internal/hardware"
)

// Driver hands out channels on one CAN network interface. The
// descriptor's Library field carries the interface name (can0, vcan0).
type Driver struct {
	desc hardware.Descriptor
}

var _ hardware.Driver = (*Driver)(nil)

func NewDriver(desc hardware.Descriptor) *Driver { return &Driver{desc: desc} }

func (d *Driver) Describe() hardware.Descriptor { return d.desc }

func (d *Driver) CreateCANChannel() (hardware.Channel, error) {
	if d.desc.Library == "" {
		return nil, fmt.Errorf("socketcan: no interface name in descriptor %q", d.desc.Name)
	}
	return newChannel(d.desc.Library)
}

func (d *Driver) Close() error { return nil }
