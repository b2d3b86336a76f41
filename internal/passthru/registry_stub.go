//go:build !windows

package passthru

import "github.com/openvehicletools/can-tracer/internal/hardware"

// Store implements hardware.Source. Passthru devices register themselves
// in the Windows registry; on other platforms there is nothing to list.
type Store struct{}

func (Store) ListDrivers() []hardware.Descriptor { return nil }
