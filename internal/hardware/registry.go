package hardware

import "github.com/openvehicletools/can-tracer/internal/metrics"

// Registry aggregates every configured driver source into one listing.
type Registry struct {
	sources []Source
}

// NewRegistry builds a registry over the given sources. Nil sources are
// tolerated and skipped.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{}
	for _, s := range sources {
		if s != nil {
			r.sources = append(r.sources, s)
		}
	}
	return r
}

// List merges all sources in order, dropping later duplicates of the same
// driver name. The result may be empty; that is not an error.
func (r *Registry) List() []Descriptor {
	var out []Descriptor
	seen := make(map[string]struct{})
	for _, s := range r.sources {
		for _, d := range s.ListDrivers() {
			if _, dup := seen[d.Name]; dup {
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d)
		}
	}
	metrics.DriversListed.Set(float64(len(out)))
	return out
}

// Find returns the descriptor with the given name, or false when the name
// is unknown. An empty name selects the first listed driver, matching the
// launcher behavior of preselecting the first device found.
func (r *Registry) Find(name string) (Descriptor, bool) {
	all := r.List()
	if len(all) == 0 {
		return Descriptor{}, false
	}
	if name == "" {
		return all[0], true
	}
	for _, d := range all {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
