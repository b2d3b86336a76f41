package main

import (
	"fmt"

	"github.com/openvehicletools/can-tracer/internal/dpdu"
	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/passthru"
	"github.com/openvehicletools/can-tracer/internal/slcan"
	"github.com/openvehicletools/can-tracer/internal/socketcan"
)

// loadDriver binds a descriptor to its backend implementation. Passthru
// and D-PDU bind their native library here; slcan and socketcan only touch
// the device on channel open.
func loadDriver(desc hardware.Descriptor, lineBaud int) (hardware.Driver, error) {
	switch desc.API {
	case hardware.APIPassthru:
		d, err := passthru.Load(desc)
		if err != nil {
			return nil, err
		}
		return d, nil
	case hardware.APIDPDU:
		d, err := dpdu.Load(desc)
		if err != nil {
			return nil, err
		}
		return d, nil
	case hardware.APISlcan:
		return slcan.NewDriver(desc, lineBaud), nil
	case hardware.APISocketCAN:
		return socketcan.NewDriver(desc), nil
	default:
		return nil, fmt.Errorf("driver %q: unknown api %q", desc.Name, desc.API)
	}
}
