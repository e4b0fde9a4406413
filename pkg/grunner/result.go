package grunner

import "time"

// Outcome classifies how a single step's evaluation ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// State is the pipeline run state. Completed, HaltedOnFailure and Cancelled
// are terminal.
type State string

const (
	StatePending         State = "pending"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StateHaltedOnFailure State = "halted_on_failure"
	StateCancelled       State = "cancelled"
)

// ReasonCancelled marks a step skipped because the run was cancelled before
// or during it.
const ReasonCancelled = "cancelled"

// StepResult records one step's evaluation. It is created when the step
// finishes (run or skip decision) and is immutable thereafter.
type StepResult struct {
	Step       string        `json:"step"`
	Outcome    Outcome       `json:"outcome"`
	ExitCode   *int          `json:"exit_code,omitempty"`
	Reason     string        `json:"reason,omitempty"` // skip reason or failure diagnostic
	StepDir    string        `json:"step_dir,omitempty"`
	LogsPath   string        `json:"logs_path,omitempty"`   // stdout.log
	StderrPath string        `json:"stderr_path,omitempty"` // stderr.log
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// PipelineResult aggregates one pipeline run. Results holds only the steps
// that were evaluated (run or skipped); steps after a halt never appear.
// The result is owned by the Run invocation that produced it.
type PipelineResult struct {
	Pipeline   string       `json:"pipeline"`
	RunID      string       `json:"run_id"`
	State      State        `json:"state"`
	FailedStep string       `json:"failed_step,omitempty"`
	Results    []StepResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// ExitCode maps the run to the process exit contract: 0 iff the pipeline
// completed (skips included), the failing step's exit code when it had one,
// and 1 otherwise (spawn failure, cancellation).
func (r *PipelineResult) ExitCode() int {
	if r.State == StateCompleted {
		return 0
	}
	for i := len(r.Results) - 1; i >= 0; i-- {
		sr := r.Results[i]
		if sr.Outcome == OutcomeFailed && sr.ExitCode != nil && *sr.ExitCode != 0 {
			return *sr.ExitCode
		}
	}
	return 1
}

// OutcomeKinds returns just the outcome of each evaluated step, in order.
// Two runs over identical probes yield identical kinds.
func (r *PipelineResult) OutcomeKinds() []Outcome {
	kinds := make([]Outcome, len(r.Results))
	for i, sr := range r.Results {
		kinds[i] = sr.Outcome
	}
	return kinds
}
