package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moturus/gantry/pkg/gerr"
)

func TestParse_OrderPreserved(t *testing.T) {
	doc := `
name: ci
steps:
  - name: Build
    command: cargo build --all-targets
  - name: Test
    command: cargo test
    requires: [hardware-virtualization]
  - name: Lint
    command: cargo clippy -- -D warnings
`
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if p.Name != "ci" {
		t.Errorf("Expected name ci, got %s", p.Name)
	}

	want := []string{"Build", "Test", "Lint"}
	if len(p.Steps) != len(want) {
		t.Fatalf("Expected %d steps, got %d", len(want), len(p.Steps))
	}
	for i, name := range want {
		if p.Steps[i].Name != name {
			t.Errorf("Step %d: expected %s, got %s", i, name, p.Steps[i].Name)
		}
	}

	if len(p.Steps[1].Requires) != 1 || p.Steps[1].Requires[0] != "hardware-virtualization" {
		t.Errorf("Test step should require hardware-virtualization, got %v", p.Steps[1].Requires)
	}
}

func TestParse_EmptyPipeline(t *testing.T) {
	p, err := Parse([]byte("name: empty\nsteps: []\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(p.Steps) != 0 {
		t.Errorf("Expected 0 steps, got %d", len(p.Steps))
	}
}

func TestParse_DuplicateName(t *testing.T) {
	doc := `
steps:
  - name: Build
    command: make
  - name: Build
    command: make again
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("Expected error for duplicate step name")
	}
	if !gerr.IsCode(err, gerr.CodeMalformedDefinition) {
		t.Errorf("Expected malformed_definition, got %v", err)
	}
}

func TestParse_MissingCommand(t *testing.T) {
	doc := `
steps:
  - name: Build
    command: make
  - name: Test
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("Expected error for missing command")
	}
	if !gerr.IsCode(err, gerr.CodeMalformedDefinition) {
		t.Errorf("Expected malformed_definition, got %v", err)
	}
	// The error must identify the offending step
	if got := err.Error(); !strings.Contains(got, "step 1") || !strings.Contains(got, "Test") {
		t.Errorf("Error should name step 1 (Test), got %q", got)
	}
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - command: make\n"))
	if err == nil {
		t.Fatal("Expected error for missing name")
	}
	if !gerr.IsCode(err, gerr.CodeMalformedDefinition) {
		t.Errorf("Expected malformed_definition, got %v", err)
	}
}

func TestParse_CacheWithoutFolder(t *testing.T) {
	doc := `
steps:
  - name: Build
    command: make
    cache:
      inputs: [go.sum]
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("Expected error for cache without folder")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("steps: [unclosed"))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
	if !gerr.IsCode(err, gerr.CodeMalformedDefinition) {
		t.Errorf("Expected malformed_definition, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "pipeline.yaml")
	doc := `
name: ci
steps:
  - name: Build
    command: make
    cache:
      folder: target
      inputs: [Cargo.lock]
`
	os.WriteFile(path, []byte(doc), 0o644)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	specs := p.CacheSpecs()
	if len(specs) != 1 {
		t.Fatalf("Expected 1 cache spec, got %d", len(specs))
	}
	if specs[0].Folder != "target" {
		t.Errorf("Expected cache folder target, got %s", specs[0].Folder)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !gerr.IsCode(err, gerr.CodeMalformedDefinition) {
		t.Errorf("Expected malformed_definition, got %v", err)
	}
}
