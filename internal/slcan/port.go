package slcan

import (
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// readSlice is the granularity of port reads. tarm/serial returns after
// ReadTimeout with n=0 and no error, so short timeouts keep Read loops
// responsive to deadlines.
const readSlice = 5 * time.Millisecond

// openPort is a package hook so tests can substitute a fake adapter.
var openPort = func(name string, lineBaud int) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: lineBaud, ReadTimeout: readSlice}
	return serial.OpenPort(cfg)
}
