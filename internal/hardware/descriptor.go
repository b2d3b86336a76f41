// Package hardware defines the vendor-neutral contracts between the tracer
// session and a diagnostic interface: driver discovery, driver loading, and
// the CAN channel capability set. Concrete backends (passthru, dpdu, slcan,
// socketcan) implement these contracts.
package hardware

// API identifies the vendor driver family a descriptor belongs to.
type API int

const (
	APIPassthru API = iota
	APIDPDU
	APISlcan
	APISocketCAN
)

func (a API) String() string {
	switch a {
	case APIPassthru:
		return "passthru"
	case APIDPDU:
		return "dpdu"
	case APISlcan:
		return "slcan"
	case APISocketCAN:
		return "socketcan"
	default:
		return "unknown"
	}
}

// ParseAPI is the inverse of String. Unknown names report false.
func ParseAPI(s string) (API, bool) {
	switch s {
	case "passthru":
		return APIPassthru, true
	case "dpdu":
		return APIDPDU, true
	case "slcan":
		return APISlcan, true
	case "socketcan":
		return APISocketCAN, true
	}
	return 0, false
}

// Descriptor names one installed diagnostic driver: where its native
// library lives and whether it can do raw CAN. Descriptors are produced by
// store enumeration and are immutable afterwards.
type Descriptor struct {
	Name    string
	Vendor  string
	Library string // native library path; device path for slcan/socketcan
	CAN     bool   // driver advertises raw CAN support
	API     API
}
