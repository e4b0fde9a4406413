// Package grunner executes pipeline definitions: one Runner per run, strictly
// sequential steps, fail-fast on the first failure, capability-gated skips
// that never halt, and cancellation honored between steps.
package grunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/moturus/gantry/pkg/capability"
	"github.com/moturus/gantry/pkg/glog"
	"github.com/moturus/gantry/pkg/pipeline"
)

// RunsSubdir is where run state lives relative to the base directory.
const RunsSubdir = ".gantry/runs"

// Runner orchestrates one pipeline run at a time. Independent Runners share
// no mutable state and may run in parallel.
type Runner struct {
	probe   capability.Probe
	baseDir string
	workDir string
	env     map[string]string
	logger  *glog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the directory under which .gantry/runs is created.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithRunWorkDir sets the working directory for step commands.
func WithRunWorkDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.workDir = dir
	}
}

// WithRunEnv sets extra environment variables for step commands.
func WithRunEnv(env map[string]string) RunnerOption {
	return func(r *Runner) {
		r.env = env
	}
}

// WithLogger sets the logger. Defaults to a quiet logger.
func WithLogger(logger *glog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner that consults probe for step eligibility.
func NewRunner(probe capability.Probe, opts ...RunnerOption) *Runner {
	cwd, _ := os.Getwd()
	r := &Runner{
		probe:   probe,
		baseDir: cwd,
		workDir: cwd,
		logger:  glog.NewQuiet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every step of p in declaration order and returns the
// aggregated result. It never returns an error: step-level problems are
// captured in StepResults, and load-time malformation is the loader's job.
//
// State machine: Pending -> Running(i) -> Running(i+1) on success or skip,
// -> HaltedOnFailure on the first Failed step, -> Cancelled when the context
// is done between steps, -> Completed after the last step. An empty pipeline
// completes immediately.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline) *PipelineResult {
	runID := newRunID()
	runDir := filepath.Join(r.baseDir, RunsSubdir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		// Steps will fail individually with a diagnostic; keep going so the
		// caller still gets a complete, auditable result
		r.logger.Warn("cannot create run directory", "dir", runDir, "err", err)
	}

	executor := NewExecutor(runDir, WithWorkDir(r.workDir), WithEnv(r.env))

	result := &PipelineResult{
		Pipeline:  p.Name,
		RunID:     runID,
		State:     StateRunning,
		StartedAt: time.Now(),
	}

	for i, step := range p.Steps {
		if ctx.Err() != nil {
			r.logger.Info("run cancelled", "before_step", step.Name)
			result.Results = append(result.Results, cancelledResult(step.Name))
			result.State = StateCancelled
			break
		}

		if missing, ok := r.eligible(step); !ok {
			r.logger.Info("skipping step", "step", step.Name, "requires", string(missing))
			result.Results = append(result.Results, skippedResult(step.Name, missing))
			continue
		}

		r.logger.Info("running step", "step", step.Name)
		sr := executor.Execute(ctx, i, step)
		result.Results = append(result.Results, sr)

		if sr.Outcome == OutcomeFailed {
			r.logger.Warn("step failed", "step", step.Name, "reason", sr.Reason)
			result.State = StateHaltedOnFailure
			result.FailedStep = step.Name
			break
		}
		if sr.Outcome == OutcomeSkipped && sr.Reason == ReasonCancelled {
			result.State = StateCancelled
			break
		}
	}

	if result.State == StateRunning {
		result.State = StateCompleted
	}
	result.FinishedAt = time.Now()

	r.saveResult(runDir, result)
	return result
}

// eligible reports whether every required capability is satisfied, returning
// the first missing tag otherwise. Unknown tags are unsatisfied by contract.
func (r *Runner) eligible(step pipeline.Step) (capability.Tag, bool) {
	for _, tag := range step.Requires {
		if !r.probe.Has(tag) {
			return tag, false
		}
	}
	return "", true
}

// saveResult persists the aggregate run state as result.json in the run
// directory. Best effort.
func (r *Runner) saveResult(runDir string, result *PipelineResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(runDir, "result.json"), data, 0o644); err != nil {
		r.logger.Warn("cannot save run state", "err", err)
	}
}

func skippedResult(step string, missing capability.Tag) StepResult {
	now := time.Now()
	return StepResult{
		Step:       step,
		Outcome:    OutcomeSkipped,
		Reason:     fmt.Sprintf("requires %s", missing),
		FinishedAt: &now,
	}
}

func cancelledResult(step string) StepResult {
	now := time.Now()
	return StepResult{
		Step:       step,
		Outcome:    OutcomeSkipped,
		Reason:     ReasonCancelled,
		FinishedAt: &now,
	}
}

// newRunID returns a UUIDv7 so run directories sort chronologically.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
