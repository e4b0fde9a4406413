package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moturus/gantry/pkg/gerr"
)

// Parse decodes a pipeline definition and validates it. Any problem is
// returned as a malformed_definition error naming the offending step, and no
// run should be attempted. Whether a command is actually executable is
// deliberately not checked here; a missing toolchain is itself a reportable
// step failure at run time.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, gerr.New(gerr.CodeMalformedDefinition, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads and parses a pipeline definition file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerr.New(gerr.CodeMalformedDefinition, err)
	}
	return Parse(data)
}

// Validate checks structural invariants: every step has a name and a command,
// names are unique, and cache hints declare a folder.
func (p *Pipeline) Validate() error {
	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if strings.TrimSpace(s.Name) == "" {
			return gerr.Newf(gerr.CodeMalformedDefinition, "step %d has no name", i)
		}
		if seen[s.Name] {
			return gerr.Newf(gerr.CodeMalformedDefinition, "step %d (%s): duplicate step name", i, s.Name)
		}
		seen[s.Name] = true

		if strings.TrimSpace(s.Command) == "" {
			return gerr.Newf(gerr.CodeMalformedDefinition, "step %d (%s): no command", i, s.Name)
		}
		if s.Cache != nil && strings.TrimSpace(s.Cache.Folder) == "" {
			return gerr.Newf(gerr.CodeMalformedDefinition, "step %d (%s): cache without folder", i, s.Name)
		}
	}
	return nil
}

// String returns a short human-readable summary, e.g. "ci (4 steps)".
func (p *Pipeline) String() string {
	name := p.Name
	if name == "" {
		name = "pipeline"
	}
	return fmt.Sprintf("%s (%d steps)", name, len(p.Steps))
}
