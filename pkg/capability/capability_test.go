package capability

import "testing"

func TestStaticProbe(t *testing.T) {
	probe := NewStaticProbe(TagDocker, TagRoot)

	if !probe.Has(TagDocker) {
		t.Error("Expected docker to be satisfied")
	}
	if !probe.Has(TagRoot) {
		t.Error("Expected root to be satisfied")
	}
	if probe.Has(TagHardwareVirtualization) {
		t.Error("Expected hardware-virtualization to be unsatisfied")
	}
}

func TestStaticProbe_UnknownTag(t *testing.T) {
	probe := NewStaticProbe(TagDocker)

	// Unknown tags must resolve to unsatisfied, never error
	if probe.Has(Tag("quantum-entanglement")) {
		t.Error("Unknown tag should be unsatisfied")
	}
}

func TestOverride_ForcedWins(t *testing.T) {
	base := NewStaticProbe(TagDocker)
	probe := Override{
		Base: base,
		Forced: map[Tag]bool{
			TagDocker:                 false,
			TagHardwareVirtualization: true,
		},
	}

	if probe.Has(TagDocker) {
		t.Error("Forced deny should override base detection")
	}
	if !probe.Has(TagHardwareVirtualization) {
		t.Error("Forced assume should override base detection")
	}
	// Untouched tags fall through to the base
	if probe.Has(TagRoot) {
		t.Error("Unforced absent tag should stay unsatisfied")
	}
}

func TestOverride_NilBase(t *testing.T) {
	probe := Override{Forced: map[Tag]bool{TagRoot: true}}

	if !probe.Has(TagRoot) {
		t.Error("Forced tag should be satisfied")
	}
	if probe.Has(TagDocker) {
		t.Error("Nil base should mean unsatisfied")
	}
}

func TestHostProbe_Deterministic(t *testing.T) {
	probe := &HostProbe{results: map[Tag]bool{TagDocker: true}}

	// Memoized results must not flap between queries
	for i := 0; i < 3; i++ {
		if !probe.Has(TagDocker) {
			t.Fatalf("Query %d: docker flapped to unsatisfied", i)
		}
		if probe.Has(TagHardwareVirtualization) {
			t.Fatalf("Query %d: unprobed tag should be unsatisfied", i)
		}
	}
}
