package grunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moturus/gantry/pkg/capability"
	"github.com/moturus/gantry/pkg/pipeline"
)

func newTestRunner(t *testing.T, probe capability.Probe) *Runner {
	t.Helper()
	dir := t.TempDir()
	return NewRunner(probe, WithBaseDir(dir), WithRunWorkDir(dir))
}

func step(name, command string, requires ...capability.Tag) pipeline.Step {
	return pipeline.Step{Name: name, Command: command, Requires: requires}
}

func TestRunner_AllSucceed(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Name: "ci", Steps: []pipeline.Step{
		step("Build", "true"),
		step("Test", "true"),
		step("Lint", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if result.State != StateCompleted {
		t.Fatalf("Expected completed, got %s", result.State)
	}
	if len(result.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(result.Results))
	}
	for _, sr := range result.Results {
		if sr.Outcome != OutcomeSucceeded {
			t.Errorf("Step %s: expected succeeded, got %s", sr.Step, sr.Outcome)
		}
	}
	if result.ExitCode() != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode())
	}
}

func TestRunner_FailFast(t *testing.T) {
	// Build fails with 101; Format and Clippy must never be evaluated
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Name: "ci", Steps: []pipeline.Step{
		step("Build", "exit 101"),
		step("Format", "true"),
		step("Clippy", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if result.State != StateHaltedOnFailure {
		t.Fatalf("Expected halted_on_failure, got %s", result.State)
	}
	if result.FailedStep != "Build" {
		t.Errorf("Expected failed step Build, got %s", result.FailedStep)
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected exactly 1 result, got %d", len(result.Results))
	}
	if result.Results[0].ExitCode == nil || *result.Results[0].ExitCode != 101 {
		t.Errorf("Expected exit code 101, got %v", result.Results[0].ExitCode)
	}
	if result.ExitCode() != 101 {
		t.Errorf("Expected pipeline exit code 101, got %d", result.ExitCode())
	}
}

func TestRunner_FailAtMiddleStep(t *testing.T) {
	// Failing at step k leaves exactly k+1 results
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("A", "true"),
		step("B", "true"),
		step("C", "exit 2"),
		step("D", "true"),
		step("E", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if len(result.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(result.Results))
	}
	if result.FailedStep != "C" {
		t.Errorf("Expected failed step C, got %s", result.FailedStep)
	}
}

func TestRunner_SkipDoesNotHalt(t *testing.T) {
	// Host without virtualization: Test is skipped, pipeline still completes
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Name: "ci", Steps: []pipeline.Step{
		step("Build", "true"),
		step("Test", "true", capability.TagHardwareVirtualization),
		step("Lint", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if result.State != StateCompleted {
		t.Fatalf("Expected completed, got %s", result.State)
	}

	want := []Outcome{OutcomeSucceeded, OutcomeSkipped, OutcomeSucceeded}
	got := result.OutcomeKinds()
	if len(got) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if result.Results[1].Reason != "requires hardware-virtualization" {
		t.Errorf("Skip reason should name the missing tag, got %q", result.Results[1].Reason)
	}
	if result.ExitCode() != 0 {
		t.Errorf("Skips must not fail the run, got exit code %d", result.ExitCode())
	}
}

func TestRunner_UnknownTagSkips(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe(capability.TagDocker))
	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("Weird", "true", capability.Tag("warp-drive")),
		step("Normal", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if result.State != StateCompleted {
		t.Fatalf("Unknown tags must skip, not halt; got %s", result.State)
	}
	if result.Results[0].Outcome != OutcomeSkipped {
		t.Errorf("Expected skipped, got %s", result.Results[0].Outcome)
	}
}

func TestRunner_EmptyPipeline(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Name: "empty"}

	result := runner.Run(context.Background(), p)

	if result.State != StateCompleted {
		t.Fatalf("Expected completed, got %s", result.State)
	}
	if len(result.Results) != 0 {
		t.Errorf("Expected empty result list, got %d", len(result.Results))
	}
	if result.ExitCode() != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode())
	}
}

func TestRunner_CancelledBeforeFirstStep(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("First", "true"),
		step("Second", "true"),
	}}

	result := runner.Run(ctx, p)

	if result.State != StateCancelled {
		t.Fatalf("Expected cancelled, got %s", result.State)
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(result.Results))
	}
	sr := result.Results[0]
	if sr.Outcome != OutcomeSkipped || sr.Reason != ReasonCancelled {
		t.Errorf("Expected skipped(cancelled), got %s(%s)", sr.Outcome, sr.Reason)
	}
	if result.ExitCode() == 0 {
		t.Error("Cancelled run must exit nonzero")
	}
}

func TestRunner_CancelledAfterFirstStep(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 0 drops a marker file; a watcher cancels the run once it appears.
	// Whether the cancellation lands between steps or kills step 1 mid-run,
	// the result must be [Succeeded, Skipped(cancelled)] with step 2 absent.
	marker := filepath.Join(runner.workDir, "step-one-done")
	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("First", "touch "+marker),
		step("Second", "sleep 30"),
		step("Third", "true"),
	}}

	go func() {
		for {
			if _, err := os.Stat(marker); err == nil {
				cancel()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	result := runner.Run(ctx, p)

	if result.State != StateCancelled {
		t.Fatalf("Expected cancelled, got %s", result.State)
	}
	if len(result.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(result.Results))
	}
	if result.Results[0].Outcome != OutcomeSucceeded {
		t.Errorf("First step should have succeeded, got %s", result.Results[0].Outcome)
	}
	last := result.Results[1]
	if last.Outcome != OutcomeSkipped || last.Reason != ReasonCancelled {
		t.Errorf("Second result should be skipped(cancelled), got %s(%s)", last.Outcome, last.Reason)
	}
}

func TestRunner_IdempotentOutcomeKinds(t *testing.T) {
	// Two runs over identical probes yield identical outcome-kind sequences
	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("Build", "true"),
		step("Test", "true", capability.TagHardwareVirtualization),
		step("Lint", "true"),
	}}

	first := newTestRunner(t, capability.NewStaticProbe(capability.TagDocker)).Run(context.Background(), p)
	second := newTestRunner(t, capability.NewStaticProbe(capability.TagDocker)).Run(context.Background(), p)

	a, b := first.OutcomeKinds(), second.OutcomeKinds()
	if len(a) != len(b) {
		t.Fatalf("Result lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Step %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestRunner_SpawnFailureHalts(t *testing.T) {
	runner := newTestRunner(t, capability.NewStaticProbe())
	p := &pipeline.Pipeline{Steps: []pipeline.Step{
		step("Broken", "/no/such/interpreter --flag"),
		step("Never", "true"),
	}}

	result := runner.Run(context.Background(), p)

	if result.State != StateHaltedOnFailure {
		t.Fatalf("Expected halted_on_failure, got %s", result.State)
	}
	if len(result.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(result.Results))
	}
	if result.ExitCode() == 0 {
		t.Error("Spawn failure must exit nonzero")
	}
}
