//go:build windows

package passthru

import (
	"golang.org/x/sys/windows/registry"

	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/logging"
)

// passthruKey is where Passthru 04.04 installers register their devices.
const passthruKey = `SOFTWARE\PassThruSupport.04.04`

// Store enumerates Passthru drivers from the Windows registry. It
// implements hardware.Source.
type Store struct{}

// ListDrivers scans both registry views (04.04 drivers are 32-bit, so on
// 64-bit hosts they usually live under WOW6432Node). An absent key yields
// an empty list: a host without drivers is not an error.
func (Store) ListDrivers() []hardware.Descriptor {
	var out []hardware.Descriptor
	seen := make(map[string]struct{})
	views := []uint32{
		registry.READ | registry.WOW64_32KEY,
		registry.READ | registry.WOW64_64KEY,
	}
	for _, access := range views {
		for _, d := range scanView(access) {
			if _, dup := seen[d.Name]; dup {
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func scanView(access uint32) []hardware.Descriptor {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, passthruKey, access)
	if err != nil {
		return nil
	}
	defer k.Close()
	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}
	var out []hardware.Descriptor
	for _, name := range names {
		sk, err := registry.OpenKey(registry.LOCAL_MACHINE, passthruKey+`\`+name, access)
		if err != nil {
			continue
		}
		devName, _, _ := sk.GetStringValue("Name")
		vendor, _, _ := sk.GetStringValue("Vendor")
		library, _, _ := sk.GetStringValue("FunctionLibrary")
		canCap, _, _ := sk.GetIntegerValue("CAN")
		sk.Close()
		if devName == "" {
			devName = name
		}
		if library == "" {
			logging.L().Warn("passthru_entry_without_library", "key", name)
			continue
		}
		out = append(out, hardware.Descriptor{
			Name:    devName,
			Vendor:  vendor,
			Library: library,
			CAN:     canCap != 0,
			API:     hardware.APIPassthru,
		})
	}
	return out
}
