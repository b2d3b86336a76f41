package dpdu

import (
	"errors"
	"testing"

	"github.com/openvehicletools/can-tracer/internal/hardware"
)

func TestLoadReportsNotImplemented(t *testing.T) {
	d, err := Load(hardware.Descriptor{Name: "MVCI Box", Library: `C:\mvci\pdu.dll`, API: hardware.APIDPDU})
	if d != nil {
		t.Fatalf("Load returned a driver: %v", d)
	}
	if !errors.Is(err, hardware.ErrNotImplemented) {
		t.Fatalf("err = %v, want ErrNotImplemented", err)
	}
	var le *hardware.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %T, want *hardware.LoadError", err)
	}
	if le.Driver != "MVCI Box" {
		t.Fatalf("Driver = %q", le.Driver)
	}
}
