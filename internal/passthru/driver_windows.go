//go:build windows

package passthru

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/openvehicletools/can-tracer/internal/hardware"
	"github.com/openvehicletools/can-tracer/internal/logging"
)

// Driver is an open Passthru device. It binds the vendor DLL listed in
// the registry entry and holds the device handle from PassThruOpen.
type Driver struct {
	desc     hardware.Descriptor
	dll      *windows.DLL
	deviceID uint32

	openProc        *windows.Proc
	closeProc       *windows.Proc
	connectProc     *windows.Proc
	disconnectProc  *windows.Proc
	readProc        *windows.Proc
	writeProc       *windows.Proc
	startFilterProc *windows.Proc
	stopFilterProc  *windows.Proc
	ioctlProc       *windows.Proc
	versionProc     *windows.Proc
	lastErrProc     *windows.Proc
}

var _ hardware.Driver = (*Driver)(nil)

// Load binds the driver's function library, opens the device and checks
// the reported API version. Failures come back as *hardware.LoadError so
// callers can tell a missing DLL from a version mismatch.
func Load(desc hardware.Descriptor) (*Driver, error) {
	loadErr := func(err error) error {
		return &hardware.LoadError{Driver: desc.Name, Path: desc.Library, Err: err}
	}
	if _, err := os.Stat(desc.Library); err != nil {
		return nil, loadErr(hardware.ErrLibraryNotFound)
	}
	dll, err := windows.LoadDLL(desc.Library)
	if err != nil {
		return nil, loadErr(err)
	}
	d := &Driver{desc: desc, dll: dll}

	var missing string
	find := func(name string) *windows.Proc {
		p, err := dll.FindProc(name)
		if err != nil && missing == "" {
			missing = name
		}
		return p
	}
	d.openProc = find("PassThruOpen")
	d.closeProc = find("PassThruClose")
	d.connectProc = find("PassThruConnect")
	d.disconnectProc = find("PassThruDisconnect")
	d.readProc = find("PassThruReadMsgs")
	d.writeProc = find("PassThruWriteMsgs")
	d.startFilterProc = find("PassThruStartMsgFilter")
	d.stopFilterProc = find("PassThruStopMsgFilter")
	d.ioctlProc = find("PassThruIoctl")
	d.versionProc = find("PassThruReadVersion")
	d.lastErrProc = find("PassThruGetLastError")
	if missing != "" {
		_ = dll.Release()
		return nil, loadErr(fmt.Errorf("%w: %s", hardware.ErrSymbolMissing, missing))
	}

	status, _, _ := d.openProc.Call(0, uintptr(unsafe.Pointer(&d.deviceID)))
	if uint32(status) != statusNoError {
		_ = dll.Release()
		return nil, loadErr(d.apiError("PassThruOpen", uint32(status)))
	}

	firmware, dllVer, api := d.readVersion()
	if !strings.HasPrefix(api, requiredVersionPrefix) {
		_, _, _ = d.closeProc.Call(uintptr(d.deviceID))
		_ = dll.Release()
		return nil, loadErr(fmt.Errorf("%w: api %q", hardware.ErrIncompatibleVersion, api))
	}
	logging.L().Info("passthru_driver_loaded",
		"driver", desc.Name,
		"firmware", firmware,
		"dll", dllVer,
		"api", api,
	)
	return d, nil
}

func (d *Driver) Describe() hardware.Descriptor { return d.desc }

// CreateCANChannel returns an unconnected raw CAN channel on this device.
// Configure and Open it before use.
func (d *Driver) CreateCANChannel() (hardware.Channel, error) {
	if d.dll == nil {
		return nil, hardware.ErrNotOpen
	}
	return &Channel{drv: d}, nil
}

// Close shuts the device and releases the DLL. Safe to call once.
func (d *Driver) Close() error {
	if d.dll == nil {
		return nil
	}
	status, _, _ := d.closeProc.Call(uintptr(d.deviceID))
	err := d.dll.Release()
	d.dll = nil
	if uint32(status) != statusNoError {
		return d.apiError("PassThruClose", uint32(status))
	}
	return err
}

func (d *Driver) readVersion() (firmware, dll, api string) {
	var fw, dv, av [80]byte
	status, _, _ := d.versionProc.Call(
		uintptr(d.deviceID),
		uintptr(unsafe.Pointer(&fw[0])),
		uintptr(unsafe.Pointer(&dv[0])),
		uintptr(unsafe.Pointer(&av[0])),
	)
	if uint32(status) != statusNoError {
		return "", "", ""
	}
	return cstr(fw[:]), cstr(dv[:]), cstr(av[:])
}

// apiError wraps a nonzero status. For ERR_FAILED the vendor keeps a
// textual reason retrievable once via PassThruGetLastError.
func (d *Driver) apiError(op string, status uint32) error {
	detail := ""
	if status == errFailed && d.lastErrProc != nil {
		var buf [80]byte
		s, _, _ := d.lastErrProc.Call(uintptr(unsafe.Pointer(&buf[0])))
		if uint32(s) == statusNoError {
			detail = cstr(buf[:])
		}
	}
	return apiErr(op, status, detail)
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
