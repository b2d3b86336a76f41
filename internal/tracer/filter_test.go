package tracer

import (
	"testing"

	"github.com/openvehicletools/can-tracer/internal/can"
)

func TestFilterSpecPass(t *testing.T) {
	cases := []struct {
		name   string
		mask   uint32
		filter uint32
		addr   uint32
		want   bool
	}{
		{"zero accepts all", 0, 0, 0x7E0, true},
		{"zero accepts zero", 0, 0, 0, true},
		{"exact match", 0xFFFFFFFF, 0x201, 0x201, true},
		{"exact mismatch", 0xFFFFFFFF, 0x201, 0x202, false},
		{"range via mask", 0xFFFFFF00, 0x200, 0x2AB, true},
		{"range mismatch", 0xFFFFFF00, 0x200, 0x3AB, false},
		{"unsatisfiable filter", 0x0F0, 0xF00, 0xF00, false},
	}
	for _, tc := range cases {
		spec := FilterSpec{Mask: tc.mask, Filter: tc.filter}
		f := can.New(tc.addr, []byte{1}, false)
		if got := spec.Pass(f); got != tc.want {
			t.Errorf("%s: Pass(0x%X) with mask=0x%X filter=0x%X = %v, want %v",
				tc.name, tc.addr, tc.mask, tc.filter, got, tc.want)
		}
	}
}

// Pass must equal the defining expression for arbitrary inputs, not just
// curated cases.
func TestFilterSpecPassMatchesDefinition(t *testing.T) {
	addrs := []uint32{0, 1, 0x7FF, 0x800, 0x201, 0xABCDEF, 0x1FFFFFFF, 0xFFFFFFFF}
	masks := []uint32{0, 0xFF, 0x700, 0xFFFFFFFF, 0x10000000}
	filters := []uint32{0, 0x200, 0x201, 0x10000000, 0xFFFFFFFF}
	for _, a := range addrs {
		for _, m := range masks {
			for _, fl := range filters {
				spec := FilterSpec{Mask: m, Filter: fl}
				f := can.Frame{ID: a}
				if got, want := spec.Pass(f), a&m == fl; got != want {
					t.Fatalf("Pass(addr=0x%X mask=0x%X filter=0x%X) = %v, want %v", a, m, fl, got, want)
				}
			}
		}
	}
}

func TestParseHex(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"7E0", 0x7E0, true},
		{"0x7E0", 0x7E0, true},
		{"0X7e0", 0x7E0, true},
		{"  1aB ", 0x1AB, true},
		{"0", 0, true},
		{"FFFFFFFF", 0xFFFFFFFF, true},
		{"", 0, false},
		{"   ", 0, false},
		{"0x", 0, false},
		{"xyz", 0, false},
		{"12 34", 0, false},
		{"100000000", 0, false}, // over 32 bits
		{"-1", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseHex(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseHex(%q) = 0x%X, %v, want 0x%X, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
