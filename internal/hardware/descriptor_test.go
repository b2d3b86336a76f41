package hardware

import "testing"

func TestParseAPIRoundTrip(t *testing.T) {
	for _, api := range []API{APIPassthru, APIDPDU, APISlcan, APISocketCAN} {
		got, ok := ParseAPI(api.String())
		if !ok || got != api {
			t.Fatalf("ParseAPI(%q) = %v, %v", api.String(), got, ok)
		}
	}
	if _, ok := ParseAPI("j2534"); ok {
		t.Fatal("ParseAPI should reject unknown names")
	}
	if API(99).String() != "unknown" {
		t.Fatalf("out-of-range API = %q", API(99).String())
	}
}
