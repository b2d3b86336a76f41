package hardware

import (
	"errors"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/openvehicletools/can-tracer/internal/logging"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// Source enumerates installed drivers from one configuration store. A
// source that cannot reach its store reports an empty list, never an
// error: "no drivers found" is an answer the operator can act on.
type Source interface {
	ListDrivers() []Descriptor
}

// FileStore reads driver descriptors from a TOML file. It is the driver
// configuration store on hosts without a Passthru registry (and a way to
// pin extra drivers on hosts with one):
//
//	[[driver]]
//	name = "OpenPort 2.0"
//	vendor = "Tactrix"
//	library = "/usr/lib/j2534/op20pt64.so"
//	can = true
//
//	[[driver]]
//	name = "CANable"
//	api = "slcan"
//	library = "/dev/ttyACM0"
type FileStore struct {
	Path string
}

type fileDriver struct {
	Name    string `toml:"name"`
	Vendor  string `toml:"vendor"`
	Library string `toml:"library"`
	CAN     *bool  `toml:"can"` // omitted means true
	API     string `toml:"api"` // omitted means passthru
}

type fileConfig struct {
	Driver []fileDriver `toml:"driver"`
}

// ListDrivers decodes the store file. A missing file is not an error; a
// malformed one is logged and yields an empty list.
func (s FileStore) ListDrivers() []Descriptor {
	if s.Path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			metrics.IncError(metrics.ErrRegistry)
			logging.L().Warn("driver_store_read_error", "path", s.Path, "error", err)
		}
		return nil
	}
	var cfg fileConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		metrics.IncError(metrics.ErrRegistry)
		logging.L().Warn("driver_store_parse_error", "path", s.Path, "error", err)
		return nil
	}
	out := make([]Descriptor, 0, len(cfg.Driver))
	for _, d := range cfg.Driver {
		if d.Name == "" || d.Library == "" {
			logging.L().Warn("driver_store_entry_skipped", "path", s.Path, "name", d.Name)
			continue
		}
		api := APIPassthru
		if d.API != "" {
			parsed, ok := ParseAPI(d.API)
			if !ok {
				logging.L().Warn("driver_store_entry_skipped", "path", s.Path, "name", d.Name, "api", d.API)
				continue
			}
			api = parsed
		}
		canCapable := d.CAN == nil || *d.CAN
		out = append(out, Descriptor{
			Name:    d.Name,
			Vendor:  d.Vendor,
			Library: d.Library,
			CAN:     canCapable,
			API:     api,
		})
	}
	return out
}
