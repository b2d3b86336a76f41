package hardware

import "testing"

type staticSource []Descriptor

func (s staticSource) ListDrivers() []Descriptor { return s }

func TestRegistryMergesAndDeduplicates(t *testing.T) {
	a := staticSource{
		{Name: "Device A", Library: "a.dll", API: APIPassthru},
		{Name: "Device B", Library: "b.dll", API: APIPassthru},
	}
	b := staticSource{
		{Name: "Device B", Library: "b-shadowed.dll", API: APIPassthru},
		{Name: "Device C", Library: "c.so", API: APIPassthru},
	}
	got := NewRegistry(a, b).List()
	if len(got) != 3 {
		t.Fatalf("got %d descriptors, want 3", len(got))
	}
	if got[1].Library != "b.dll" {
		t.Fatalf("first source must win on duplicate names, got %q", got[1].Library)
	}
	if got[2].Name != "Device C" {
		t.Fatalf("source order not preserved: %+v", got)
	}
}

func TestRegistryToleratesNilAndEmptySources(t *testing.T) {
	if got := NewRegistry(nil, staticSource{}).List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry(staticSource{
		{Name: "First", Library: "1.dll"},
		{Name: "Second", Library: "2.dll"},
	})
	if d, ok := r.Find(""); !ok || d.Name != "First" {
		t.Fatalf("empty name should select first driver, got %+v ok=%v", d, ok)
	}
	if d, ok := r.Find("Second"); !ok || d.Library != "2.dll" {
		t.Fatalf("Find(Second) = %+v ok=%v", d, ok)
	}
	if _, ok := r.Find("Missing"); ok {
		t.Fatalf("Find(Missing) should fail")
	}
	if _, ok := NewRegistry().Find(""); ok {
		t.Fatalf("Find on empty registry should fail")
	}
}
