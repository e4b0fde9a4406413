// Package pipeline defines the declarative pipeline document gantry consumes
// and its loader. A pipeline is an ordered list of named steps; order is
// significant and fixed at load time.
package pipeline

import (
	"github.com/moturus/gantry/pkg/capability"
)

// Pipeline is a parsed pipeline definition.
type Pipeline struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one unit of work: an opaque shell command, optionally gated on host
// capabilities and optionally carrying a cache hint.
type Step struct {
	Name     string           `yaml:"name"`
	Command  string           `yaml:"command"`
	Requires []capability.Tag `yaml:"requires,omitempty"`
	Cache    *CacheSpec       `yaml:"cache,omitempty"`
}

// CacheSpec declares a folder worth persisting across runs and the input
// files whose contents fingerprint it. The command itself is never part of
// the fingerprint; two steps sharing inputs share a cache entry.
type CacheSpec struct {
	Folder string   `yaml:"folder"`
	Inputs []string `yaml:"inputs,omitempty"`
}

// CacheSpecs returns every cache declaration in step order. The cache
// collaborator consumes these once per run, not per step.
func (p *Pipeline) CacheSpecs() []CacheSpec {
	var specs []CacheSpec
	for _, s := range p.Steps {
		if s.Cache != nil {
			specs = append(specs, *s.Cache)
		}
	}
	return specs
}
