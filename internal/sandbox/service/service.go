package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codesandbox/internal/common/limiter"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/observer"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/result"
	appErr "codesandbox/pkg/errors"
	"codesandbox/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultMaxCodeBytes  = 64 * 1024
	defaultMaxConcurrent = 4
)

// Service validates requests and admits them to the executor.
type Service struct {
	executor     sandbox.Service
	profiles     profile.Repository
	limiter      *limiter.TokenLimiter
	metrics      observer.MetricsRecorder
	maxCodeBytes int
	queueTimeout time.Duration
}

// Config holds service dependencies and settings.
type Config struct {
	Executor sandbox.Service
	Profiles profile.Repository
	Metrics  observer.MetricsRecorder
	// MaxCodeBytes bounds the submitted source size.
	MaxCodeBytes int
	// MaxConcurrent bounds in-flight executions.
	MaxConcurrent int
	// QueueTimeout is how long a request may wait for a free slot.
	QueueTimeout time.Duration
}

// NewService creates a new execution service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("language profiles are required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observer.NoopMetricsRecorder{}
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		executor:     cfg.Executor,
		profiles:     cfg.Profiles,
		limiter:      limiter.NewTokenLimiter(cfg.MaxConcurrent),
		metrics:      cfg.Metrics,
		maxCodeBytes: cfg.MaxCodeBytes,
		queueTimeout: cfg.QueueTimeout,
	}, nil
}

// Validate rejects malformed requests before any filesystem or process work.
func (s *Service) Validate(req sandbox.ExecutionRequest) error {
	if strings.TrimSpace(req.SourceCode) == "" {
		return appErr.ValidationError("code", "required")
	}
	if strings.TrimSpace(req.Language) == "" {
		return appErr.ValidationError("language", "required")
	}
	if len(req.SourceCode) > s.maxCodeBytes {
		return appErr.Newf(appErr.CodeTooLarge, "code exceeds %d bytes", s.maxCodeBytes).
			WithDetail("size", len(req.SourceCode))
	}
	lang, err := s.profiles.Get(req.Language)
	if err != nil {
		return err
	}
	if lang.UsesEntryPoint() {
		return sandbox.ValidateEntryPoint(req.EntryPoint)
	}
	if req.EntryPoint != "" {
		return appErr.ValidationError("entryPoint", "not supported for "+lang.ID)
	}
	return nil
}

// Execute validates req, waits for an execution slot and runs it.
// Execution outcomes are returned as a result; only rejections are returned as errors.
func (s *Service) Execute(ctx context.Context, req sandbox.ExecutionRequest) (result.ExecutionResult, error) {
	if err := s.Validate(req); err != nil {
		s.metrics.ObserveRejected(ctx, "invalid")
		return result.ExecutionResult{}, err
	}
	if err := s.limiter.AcquireWithin(ctx, s.queueTimeout); err != nil {
		s.metrics.ObserveRejected(ctx, "queue_full")
		logger.Warn(ctx, "execution slot unavailable",
			zap.String("language", req.Language),
			zap.Duration("queue_timeout", s.queueTimeout),
			zap.Error(err),
		)
		return result.ExecutionResult{}, appErr.Wrap(err, appErr.ExecutionQueueFull)
	}
	s.metrics.ObserveInflight(1)
	defer func() {
		s.metrics.ObserveInflight(-1)
		s.limiter.Release()
	}()
	return s.executor.Execute(ctx, req), nil
}

// Languages returns the registered language profiles.
func (s *Service) Languages() []profile.LanguageProfile {
	return s.profiles.List()
}
