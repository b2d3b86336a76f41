//go:build !linux

package socketcan

import (
	"fmt"
	"runtime"

	"github.com/openvehicletools/can-tracer/internal/hardware"
)

func newChannel(iface string) (hardware.Channel, error) {
	return nil, fmt.Errorf("socketcan is unsupported on %s", runtime.GOOS)
}
