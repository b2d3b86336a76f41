// Package dpdu reserves the D-PDU API (ISO 22900-2) backend slot. Devices
// advertising only a D-PDU library can be listed and selected, but loading
// one reports hardware.ErrNotImplemented until the MVCI binding lands.
package dpdu

import "github.com/openvehicletools/can-tracer/internal/hardware"

type Driver struct{}

var _ hardware.Driver = (*Driver)(nil)

func Load(desc hardware.Descriptor) (*Driver, error) {
	return nil, &hardware.LoadError{
		Driver: desc.Name,
		Path:   desc.Library,
		Err:    hardware.ErrNotImplemented,
	}
}

func (d *Driver) Describe() hardware.Descriptor { return hardware.Descriptor{API: hardware.APIDPDU} }

func (d *Driver) CreateCANChannel() (hardware.Channel, error) { return nil, hardware.ErrNotImplemented }

func (d *Driver) Close() error { return nil }
