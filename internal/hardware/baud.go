package hardware

// SupportedBauds is the fixed set of standard automotive CAN bit rates a
// channel may be configured with, lowest first. Channels reject anything
// else with ErrBadBaud; a backend may additionally reject rates it cannot
// map onto its own hardware.
var SupportedBauds = []uint32{
	5000,
	10000,
	20000,
	31250,
	33333,
	40000,
	50000,
	80000,
	83333,
	100000,
	125000,
	200000,
	250000,
	500000,
	1000000,
}

// ValidBaud reports whether baud is in SupportedBauds.
func ValidBaud(baud uint32) bool {
	for _, b := range SupportedBauds {
		if b == baud {
			return true
		}
	}
	return false
}
