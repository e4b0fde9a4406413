// Package capability resolves named host features that pipeline steps may
// require. Eligibility is always a runtime predicate over the live execution
// host: a step gated on a tag the host can't satisfy is skipped, never failed.
package capability

// Tag identifies a host feature a step may require.
type Tag string

const (
	// TagHardwareVirtualization is satisfied when the host exposes KVM to
	// this process, i.e. nested guests can be started.
	TagHardwareVirtualization Tag = "hardware-virtualization"

	// TagDocker is satisfied when a Docker daemon is reachable.
	TagDocker Tag = "docker"

	// TagRoot is satisfied when the process runs with effective UID 0.
	TagRoot Tag = "root"
)

// Known lists every tag gantry can detect, in stable output order.
func Known() []Tag {
	return []Tag{TagHardwareVirtualization, TagDocker, TagRoot}
}

// Probe reports which capabilities the execution host satisfies.
//
// Implementations must be side-effect free and deterministic for the duration
// of a pipeline run; a tag must not flap between steps. Unknown tags resolve
// to false so a definition written for a richer host degrades to skips
// instead of fatal errors.
type Probe interface {
	Has(tag Tag) bool
}

// StaticProbe satisfies exactly a fixed set of tags. Used in tests and as the
// base for configuration overrides.
type StaticProbe map[Tag]bool

// NewStaticProbe builds a StaticProbe satisfying the given tags.
func NewStaticProbe(tags ...Tag) StaticProbe {
	p := make(StaticProbe, len(tags))
	for _, t := range tags {
		p[t] = true
	}
	return p
}

func (p StaticProbe) Has(tag Tag) bool {
	return p[tag]
}

// Override layers forced results over a base probe. Forced entries win;
// anything else falls through to the base.
type Override struct {
	Base   Probe
	Forced map[Tag]bool
}

func (o Override) Has(tag Tag) bool {
	if v, ok := o.Forced[tag]; ok {
		return v
	}
	if o.Base == nil {
		return false
	}
	return o.Base.Has(tag)
}
