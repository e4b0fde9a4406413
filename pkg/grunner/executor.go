package grunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/moturus/gantry/pkg/pipeline"
)

// diagnosticTailBytes bounds how much captured stderr is folded into a failed
// step's reason; full output stays in the log files.
const diagnosticTailBytes = 2048

// Executor runs one step's command as an isolated child process and
// classifies the outcome. A command that can't be spawned at all is a Failed
// result, never an executor error: a missing toolchain is itself a reportable
// CI failure.
type Executor struct {
	runDir  string            // per-run directory holding one subdir per step
	workDir string            // working directory for step commands
	env     map[string]string // extra environment for step commands
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithWorkDir sets the working directory steps run in.
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.workDir = dir
	}
}

// WithEnv sets extra environment variables passed to every step.
func WithEnv(env map[string]string) ExecutorOption {
	return func(e *Executor) {
		e.env = env
	}
}

// NewExecutor creates an Executor writing step state under runDir.
func NewExecutor(runDir string, opts ...ExecutorOption) *Executor {
	cwd, _ := os.Getwd()
	e := &Executor{
		runDir:  runDir,
		workDir: cwd,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the step and returns its result. index is the step's position
// in the pipeline, used for the step directory name.
func (e *Executor) Execute(ctx context.Context, index int, step pipeline.Step) StepResult {
	result := StepResult{Step: step.Name}

	stepDir := filepath.Join(e.runDir, fmt.Sprintf("%02d-%s", index, sanitizeName(step.Name)))
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		return e.failEarly(result, fmt.Errorf("creating step directory: %w", err))
	}
	result.StepDir = stepDir
	result.LogsPath = filepath.Join(stepDir, "stdout.log")
	result.StderrPath = filepath.Join(stepDir, "stderr.log")

	logFile, err := os.Create(result.LogsPath)
	if err != nil {
		return e.failEarly(result, fmt.Errorf("creating log file: %w", err))
	}
	defer logFile.Close()

	stderrFile, err := os.Create(result.StderrPath)
	if err != nil {
		return e.failEarly(result, fmt.Errorf("creating stderr file: %w", err))
	}
	defer stderrFile.Close()

	cmd := exec.CommandContext(ctx, "sh", "-c", step.Command)
	cmd.Dir = e.workDir
	cmd.Stdout = logFile
	cmd.Stderr = stderrFile

	cmd.Env = os.Environ()
	for k, v := range e.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("GANTRY_STEP=%s", step.Name))

	started := time.Now()
	result.StartedAt = &started

	runErr := cmd.Run()

	finished := time.Now()
	result.FinishedAt = &finished
	result.Duration = finished.Sub(started)

	switch {
	case ctx.Err() == context.Canceled:
		// The process was killed by cancellation; this is not a step failure
		result.Outcome = OutcomeSkipped
		result.Reason = ReasonCancelled
	case runErr == nil:
		exitCode := 0
		result.ExitCode = &exitCode
		result.Outcome = OutcomeSucceeded
	default:
		result.Outcome = OutcomeFailed
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode := exitErr.ExitCode()
			result.ExitCode = &exitCode
			result.Reason = fmt.Sprintf("exit code %d", exitCode)
			if tail := tailOf(result.StderrPath); tail != "" {
				result.Reason += ": " + tail
			}
		} else {
			// Spawn failure (missing interpreter, bad working dir, ...)
			result.Reason = runErr.Error()
			os.WriteFile(result.StderrPath, []byte(runErr.Error()), 0o644)
		}
	}

	e.saveResult(result)
	return result
}

// failEarly records a step that never reached the spawn stage.
func (e *Executor) failEarly(result StepResult, err error) StepResult {
	now := time.Now()
	result.FinishedAt = &now
	result.Outcome = OutcomeFailed
	result.Reason = err.Error()
	e.saveResult(result)
	return result
}

// saveResult persists the step state as result.json in the step directory.
// Best effort; an unwritable step dir must not abort the run.
func (e *Executor) saveResult(result StepResult) {
	if result.StepDir == "" {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(result.StepDir, "result.json"), data, 0o644)
}

// tailOf returns the trailing bytes of the file as a trimmed single line.
func tailOf(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	if len(data) > diagnosticTailBytes {
		data = data[len(data)-diagnosticTailBytes:]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\n", " "))
}

// sanitizeName makes a step name safe for use as a directory component.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}
