package tracer

import (
	"strconv"
	"strings"

	"github.com/openvehicletools/can-tracer/internal/can"
)

// FilterSpec is an address-matching rule. The zero value accepts every
// frame.
type FilterSpec struct {
	Mask   uint32
	Filter uint32
}

// Pass reports whether the frame survives the filter:
// (address & mask) == filter.
func (s FilterSpec) Pass(f can.Frame) bool { return f.ID&s.Mask == s.Filter }

// ParseHex parses operator-typed hexadecimal, tolerating surrounding
// space and an 0x/0X prefix. ok is false for empty or malformed input so
// callers can keep their previous value while the operator is mid-edit.
func ParseHex(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
