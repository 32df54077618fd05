// Package runner turns a language profile into compile and run commands and drives the engine.
package runner

import (
	"context"
	"strings"
	"time"

	"codesandbox/internal/sandbox/engine"
	"codesandbox/internal/sandbox/observer"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/result"
	"codesandbox/internal/sandbox/spec"
	appErr "codesandbox/pkg/errors"

	"github.com/google/shlex"
)

// Request describes one compile or run step inside a staged workspace.
type Request struct {
	Language   profile.LanguageProfile
	WorkDir    string
	SourcePath string
	EntryPoint string
	Stdin      string
	Timeout    time.Duration
}

// Runner executes the compile and run steps of a language.
type Runner interface {
	Compile(ctx context.Context, req Request) (result.CommandOutcome, error)
	Run(ctx context.Context, req Request) (result.CommandOutcome, error)
}

// DefaultRunner implements Runner on top of an engine.
type DefaultRunner struct {
	eng     engine.Engine
	metrics observer.MetricsRecorder
}

// NewRunner creates a new runner backed by eng.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return NewRunnerWithObserver(eng, observer.NoopMetricsRecorder{})
}

// NewRunnerWithObserver creates a new runner with metrics hooks.
func NewRunnerWithObserver(eng engine.Engine, metrics observer.MetricsRecorder) *DefaultRunner {
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &DefaultRunner{eng: eng, metrics: metrics}
}

// Compile runs the compile template. Languages without one return a zero outcome.
func (r *DefaultRunner) Compile(ctx context.Context, req Request) (result.CommandOutcome, error) {
	if !req.Language.CompileEnabled() {
		return result.CommandOutcome{}, nil
	}
	return r.exec(ctx, req, result.PhaseCompile, req.Language.CompileCmd)
}

// Run runs the run template.
func (r *DefaultRunner) Run(ctx context.Context, req Request) (result.CommandOutcome, error) {
	return r.exec(ctx, req, result.PhaseRun, req.Language.RunCmd)
}

func (r *DefaultRunner) exec(ctx context.Context, req Request, phase result.Phase, tpl string) (result.CommandOutcome, error) {
	if req.WorkDir == "" {
		return result.CommandOutcome{}, appErr.New(appErr.InvalidParams).WithMessage("work dir is required")
	}
	args, err := BuildCommand(tpl, Values{
		Source:    req.SourcePath,
		Workspace: req.WorkDir,
		Binary:    req.Language.BinaryFileName(),
		Entry:     req.Language.EntryPointOrDefault(req.EntryPoint),
	})
	if err != nil {
		return result.CommandOutcome{}, err
	}
	outcome := r.eng.Run(ctx, spec.Command{
		Args:    args,
		WorkDir: req.WorkDir,
		Env:     req.Language.Env,
		Stdin:   req.Stdin,
		Timeout: req.Timeout,
	})
	r.metrics.ObservePhase(ctx, req.Language.ID, phase, outcome.Duration)
	return outcome, nil
}

// Values are the placeholder substitutions for one command.
type Values struct {
	Source    string
	Workspace string
	Binary    string
	Entry     string
}

// BuildCommand splits tpl into fields and then expands placeholders in each field.
// A substituted value never changes the number of arguments.
func BuildCommand(tpl string, values Values) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	fields, err := shlex.Split(tpl)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after parsing")
	}
	replacer := strings.NewReplacer(
		profile.PlaceholderSource, values.Source,
		profile.PlaceholderWorkspace, values.Workspace,
		profile.PlaceholderBinary, values.Binary,
		profile.PlaceholderEntry, values.Entry,
	)
	args := make([]string, len(fields))
	for i, field := range fields {
		args[i] = replacer.Replace(field)
	}
	return args, nil
}
