package backend

import (
	"errors"
	"testing"
)

// fakeFactory is a Factory whose availability is fixed.
type fakeFactory struct {
	kind      Kind
	available bool
}

func (f fakeFactory) Kind() Kind      { return f.kind }
func (f fakeFactory) Available() bool { return f.available }
func (f fakeFactory) Create(CreateInfo) (Context, error) {
	return nil, ErrBackendNotAvailable
}

func TestDefaultRegistryHasSoftware(t *testing.T) {
	// Software backend is auto-registered via init()
	f := Get(Software)
	if f == nil {
		t.Fatal("Get(Software) returned nil")
	}
	if f.Kind() != Software {
		t.Errorf("Get(Software).Kind() = %v, want %v", f.Kind(), Software)
	}

	found := false
	for _, k := range Available() {
		if k == Software {
			found = true
		}
	}
	if !found {
		t.Error("Available() should include software")
	}
}

func TestRegistryRegisterReplaceUnregister(t *testing.T) {
	r := NewRegistry()
	if r.Get(Vulkan) != nil {
		t.Fatal("empty registry returned a factory")
	}

	r.Register(fakeFactory{kind: Vulkan, available: false})
	if r.Probe(Vulkan) {
		t.Error("Probe should be false for an unavailable factory")
	}

	r.Register(fakeFactory{kind: Vulkan, available: true})
	if !r.Probe(Vulkan) {
		t.Error("Register should replace the previous factory")
	}

	r.Unregister(Vulkan)
	if r.Get(Vulkan) != nil || r.Probe(Vulkan) {
		t.Error("Unregister did not remove the factory")
	}
}

func TestRegistryAvailableSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeFactory{kind: Software, available: true})
	r.Register(fakeFactory{kind: Vulkan, available: true})

	got := r.Available()
	if len(got) != 2 || got[0] != Vulkan || got[1] != Software {
		t.Errorf("Available() = %v, want [vulkan software]", got)
	}
}

func TestKindStringParse(t *testing.T) {
	for _, k := range []Kind{Auto, Vulkan, Software} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", k.String(), got, err, k)
		}
	}
	if _, err := ParseKind("gles"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("ParseKind(gles) error = %v, want ErrBackendNotAvailable", err)
	}
	if got := Kind(42).String(); got != "Kind(42)" {
		t.Errorf("Kind(42).String() = %q", got)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		prober Prober
		want   Kind
	}{
		{"preferred loadable", ProbeFunc(func(Kind) bool { return true }), Vulkan},
		{"preferred missing", ProbeFunc(func(Kind) bool { return false }), Software},
		{"only vulkan probed", ProbeFunc(func(k Kind) bool { return k == Vulkan }), Vulkan},
		{"nil prober", nil, Software},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.prober); got != tt.want {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeFactory{kind: Vulkan, available: true})
	first := Select(r)
	for range 10 {
		if got := Select(r); got != first {
			t.Fatalf("Select() = %v, then %v", first, got)
		}
	}
	if first != Vulkan {
		t.Errorf("Select() = %v, want %v", first, Vulkan)
	}
}

func TestSelectProbesOnlyPreferred(t *testing.T) {
	var probed []Kind
	Select(ProbeFunc(func(k Kind) bool {
		probed = append(probed, k)
		return false
	}))
	if len(probed) != 1 || probed[0] != Preferred {
		t.Errorf("probed %v, want [%v]", probed, Preferred)
	}
}
