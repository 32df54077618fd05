// Package result defines raw process outcomes and the caller-facing execution result.
package result

import "time"

// Outcome is the terminal state of one execution request.
type Outcome string

const (
	OutcomeSuccess             Outcome = "compiled_and_ran"
	OutcomeCompileFailed       Outcome = "compile_failed"
	OutcomeRunFailed           Outcome = "run_failed"
	OutcomeTimedOut            Outcome = "timed_out"
	OutcomeInfrastructureError Outcome = "infrastructure_error"
	OutcomeUnsupportedLanguage Outcome = "unsupported_language"
	OutcomeInvalidRequest      Outcome = "invalid_request"
)

// Phase names a step of the execution pipeline.
type Phase string

const (
	PhaseStage   Phase = "stage"
	PhaseCompile Phase = "compile"
	PhaseRun     Phase = "run"
)

// CommandOutcome captures raw data from one subprocess invocation.
type CommandOutcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	// ProcessError is set when the process could not be started, was cancelled by the
	// caller, or exited non-zero without writing anything to stderr.
	ProcessError error
	Duration     time.Duration
	// StdoutTruncated and StderrTruncated report that a stream hit the capture limit.
	StdoutTruncated bool
	StderrTruncated bool
}

// ExecutionResult is the contract returned to callers.
type ExecutionResult struct {
	Success         bool    `json:"success"`
	Output          *string `json:"output"`
	Error           *string `json:"error"`
	ExecutionTimeMs int64   `json:"executionTime"`
}

// Succeeded builds a successful result holding run stdout.
func Succeeded(stdout string, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Success:         true,
		Output:          &stdout,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
}

// Failed builds a failed result holding one diagnostic.
func Failed(diagnostic string, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Success:         false,
		Error:           &diagnostic,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
}

// OutputText returns the output or an empty string.
func (r ExecutionResult) OutputText() string {
	if r.Output == nil {
		return ""
	}
	return *r.Output
}

// ErrorText returns the error or an empty string.
func (r ExecutionResult) ErrorText() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}
