package sandbox

import (
	"context"
	"fmt"
	"time"

	"codesandbox/internal/sandbox/observer"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/result"
	"codesandbox/internal/sandbox/runner"
	"codesandbox/internal/sandbox/spec"
	"codesandbox/internal/sandbox/workspace"
	appErr "codesandbox/pkg/errors"
	"codesandbox/pkg/utils/contextkey"
	"codesandbox/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultCompileTimeout = 30 * time.Second

// unresolvedLanguage labels metrics and logs until the requested language resolves.
const unresolvedLanguage = "unsupported"

// WorkspaceManager allocates and releases per-request workspaces.
type WorkspaceManager interface {
	Create(ctx context.Context) (workspace.Workspace, error)
	WriteNamedSource(ctx context.Context, ws workspace.Workspace, code, fileName string) (string, error)
	Destroy(ctx context.Context, ws workspace.Workspace)
}

// ExecutorConfig holds the per-phase timeouts.
type ExecutorConfig struct {
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	RunTimeout     time.Duration `yaml:"runTimeout"`
}

// Executor drives resolve, stage, compile, run and teardown for one request.
type Executor struct {
	cfg        ExecutorConfig
	profiles   profile.Repository
	workspaces WorkspaceManager
	runner     runner.Runner
	metrics    observer.MetricsRecorder
}

// NewExecutor wires an executor. Timeouts are clamped to the allowed range.
func NewExecutor(cfg ExecutorConfig, profiles profile.Repository, workspaces WorkspaceManager, r runner.Runner, metrics observer.MetricsRecorder) *Executor {
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	cfg.CompileTimeout = spec.ClampTimeout(cfg.CompileTimeout)
	cfg.RunTimeout = spec.ClampTimeout(cfg.RunTimeout)
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &Executor{
		cfg:        cfg,
		profiles:   profiles,
		workspaces: workspaces,
		runner:     r,
		metrics:    metrics,
	}
}

// Execute runs req and returns the caller-facing result.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) result.ExecutionResult {
	res, _ := e.ExecuteDetailed(ctx, req)
	return res
}

// ExecuteDetailed runs req and also reports the terminal state.
// It never panics; unexpected faults become an infrastructure error after the workspace is released.
func (e *Executor) ExecuteDetailed(ctx context.Context, req ExecutionRequest) (res result.ExecutionResult, outcome result.Outcome) {
	languageID := unresolvedLanguage
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "execution panicked", zap.Any("panic", r), zap.Stack("stack"))
			res, outcome = result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
		}
		e.metrics.ObserveExecution(ctx, languageID, outcome)
		logger.Info(ctx, "execution finished",
			zap.String("language", languageID),
			zap.String("requested_language", req.Language),
			zap.String("outcome", string(outcome)),
			zap.Int64("execution_time_ms", res.ExecutionTimeMs),
		)
	}()

	lang, err := e.profiles.Get(req.Language)
	if err != nil {
		return result.Failed(appErr.UnsupportedLanguage(req.Language).Error(), 0), result.OutcomeUnsupportedLanguage
	}
	languageID = lang.ID

	entry := ""
	if lang.UsesEntryPoint() {
		entry = lang.EntryPointOrDefault(req.EntryPoint)
		if err := ValidateEntryPoint(entry); err != nil {
			return result.Failed(err.Error(), 0), result.OutcomeInvalidRequest
		}
	}

	stageStart := time.Now()
	ws, err := e.workspaces.Create(ctx)
	if err != nil {
		logger.Error(ctx, "create workspace failed", zap.String("language", lang.ID), zap.Error(err))
		return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
	}
	defer e.workspaces.Destroy(ctx, ws)
	ctx = context.WithValue(ctx, contextkey.ExecutionID, ws.ID)

	sourcePath, err := e.workspaces.WriteNamedSource(ctx, ws, req.SourceCode, lang.SourceFileName(entry))
	if err != nil {
		logger.Error(ctx, "write source failed", zap.String("language", lang.ID), zap.Error(err))
		return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
	}
	e.metrics.ObservePhase(ctx, lang.ID, result.PhaseStage, time.Since(stageStart))

	runReq := runner.Request{
		Language:   lang,
		WorkDir:    ws.RootDir,
		SourcePath: sourcePath,
		EntryPoint: entry,
	}

	if lang.CompileEnabled() {
		runReq.Timeout = e.cfg.CompileTimeout
		compiled, err := e.runner.Compile(ctx, runReq)
		if err != nil {
			logger.Error(ctx, "compile step failed", zap.String("language", lang.ID), zap.Error(err))
			return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
		}
		switch {
		case compiled.ProcessError != nil:
			logger.Error(ctx, "compiler process failed",
				zap.String("language", lang.ID),
				zap.Int("exit_code", compiled.ExitCode),
				zap.Error(compiled.ProcessError),
			)
			return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
		case compiled.TimedOut:
			return result.Failed(timeoutMessage("compilation", e.cfg.CompileTimeout), 0), result.OutcomeTimedOut
		case compiled.Stderr != "":
			// Warnings-only stderr is also reported as a compile failure.
			return result.Failed(markTruncated(compiled.Stderr, compiled.StderrTruncated), 0), result.OutcomeCompileFailed
		}
	}

	runReq.Timeout = e.cfg.RunTimeout
	start := time.Now()
	ran, err := e.runner.Run(ctx, runReq)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error(ctx, "run step failed", zap.String("language", lang.ID), zap.Error(err))
		return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
	}
	switch {
	case ran.ProcessError != nil:
		logger.Error(ctx, "program process failed",
			zap.String("language", lang.ID),
			zap.Int("exit_code", ran.ExitCode),
			zap.String("stdout_head", head(ran.Stdout, 256)),
			zap.Error(ran.ProcessError),
		)
		return result.Failed(GenericFailure, 0), result.OutcomeInfrastructureError
	case ran.TimedOut:
		return result.Failed(timeoutMessage("execution", e.cfg.RunTimeout), elapsed), result.OutcomeTimedOut
	case ran.Stderr != "":
		return result.Failed(markTruncated(ran.Stderr, ran.StderrTruncated), elapsed), result.OutcomeRunFailed
	}
	return result.Succeeded(markTruncated(ran.Stdout, ran.StdoutTruncated), elapsed), result.OutcomeSuccess
}

// markTruncated appends TruncationMarker when the stream hit the capture limit.
func markTruncated(text string, truncated bool) string {
	if !truncated {
		return text
	}
	return text + TruncationMarker
}

func timeoutMessage(phase string, limit time.Duration) string {
	return fmt.Sprintf("%s timed out after %ds", phase, int(limit/time.Second))
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
