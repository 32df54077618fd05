package isolation

import (
	"context"
	"errors"
	"sync"
	"time"

	appErr "codesandbox/pkg/errors"
	"codesandbox/pkg/utils/logger"

	"go.uber.org/zap"
)

// Status reports whether a component is up.
type Status struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// ActionResult reports the outcome of a lifecycle operation.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Manager controls the lifecycle of the single execution host container.
type Manager struct {
	cfg     HostConfig
	runtime Runtime
	// mu serialises lifecycle changes so concurrent starts never create two hosts.
	mu sync.Mutex
}

// NewManager validates cfg and returns a manager over rt.
func NewManager(cfg HostConfig, rt Runtime) (*Manager, error) {
	if rt == nil {
		return nil, errors.New("container runtime is required")
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, runtime: rt}, nil
}

// Config returns the effective host configuration.
func (m *Manager) Config() HostConfig {
	return m.cfg
}

// CheckRuntimeStatus reports whether the container runtime answers.
func (m *Manager) CheckRuntimeStatus(ctx context.Context) Status {
	if err := m.runtime.Ping(ctx); err != nil {
		logger.Warn(ctx, "container runtime unavailable", zap.Error(err))
		return Status{Running: false, Error: appErr.Wrap(err, appErr.RuntimeUnavailable).Error()}
	}
	return Status{Running: true}
}

// CheckExecutionHostStatus reports whether the execution host container is running.
func (m *Manager) CheckExecutionHostStatus(ctx context.Context) Status {
	state, err := m.runtime.Inspect(ctx, m.cfg.Name)
	if err != nil {
		if errors.Is(err, ErrContainerNotFound) {
			return Status{Running: false, Error: "execution host does not exist"}
		}
		logger.Warn(ctx, "inspect execution host failed", zap.String("host", m.cfg.Name), zap.Error(err))
		return Status{Running: false, Error: err.Error()}
	}
	return Status{Running: state.Running}
}

// StartExecutionHost creates or resumes the execution host. Calling it on a running host is a no-op.
func (m *Manager) StartExecutionHost(ctx context.Context) ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.start(ctx); err != nil {
		logger.Error(ctx, "start execution host failed", zap.String("host", m.cfg.Name), zap.Error(err))
		return ActionResult{Success: false, Error: err.Error()}
	}
	return ActionResult{Success: true}
}

func (m *Manager) start(ctx context.Context) error {
	state, err := m.runtime.Inspect(ctx, m.cfg.Name)
	switch {
	case err == nil && state.Running:
		return nil
	case err == nil:
		if err := m.runtime.Start(ctx, state.ID); err != nil {
			return appErr.Wrapf(err, appErr.ExecutionHostError, "resume execution host failed")
		}
		logger.Info(ctx, "execution host resumed", zap.String("host", m.cfg.Name), zap.String("container_id", state.ID))
		return nil
	case !errors.Is(err, ErrContainerNotFound):
		return appErr.Wrapf(err, appErr.ExecutionHostError, "inspect execution host failed")
	}

	if err := m.ensureImage(ctx); err != nil {
		return err
	}
	id, err := m.runtime.Create(ctx, m.cfg)
	if err != nil {
		return appErr.Wrapf(err, appErr.ExecutionHostError, "create execution host failed")
	}
	if err := m.runtime.Start(ctx, id); err != nil {
		return appErr.Wrapf(err, appErr.ExecutionHostError, "start execution host failed")
	}
	logger.Info(ctx, "execution host created",
		zap.String("host", m.cfg.Name),
		zap.String("container_id", id),
		zap.String("image", m.cfg.Image),
		zap.Int("host_port", m.cfg.HostPort),
	)
	return nil
}

func (m *Manager) ensureImage(ctx context.Context) error {
	switch m.cfg.PullPolicy {
	case PullNever:
		return nil
	case PullMissing:
		exists, err := m.runtime.ImageExists(ctx, m.cfg.Image)
		if err != nil {
			return appErr.Wrapf(err, appErr.ExecutionHostError, "inspect image failed")
		}
		if exists {
			return nil
		}
	}
	if err := m.runtime.Pull(ctx, m.cfg.Image); err != nil {
		return appErr.Wrapf(err, appErr.ExecutionHostError, "pull image %s failed", m.cfg.Image)
	}
	return nil
}

// StopExecutionHost stops the host if it is running. A missing host counts as stopped.
func (m *Manager) StopExecutionHost(ctx context.Context) ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.runtime.Inspect(ctx, m.cfg.Name)
	if err != nil {
		if errors.Is(err, ErrContainerNotFound) {
			return ActionResult{Success: true}
		}
		logger.Error(ctx, "inspect execution host failed", zap.String("host", m.cfg.Name), zap.Error(err))
		return ActionResult{Success: false, Error: err.Error()}
	}
	if !state.Running {
		return ActionResult{Success: true}
	}
	if err := m.runtime.Stop(ctx, state.ID, m.cfg.StopTimeout); err != nil {
		logger.Error(ctx, "stop execution host failed", zap.String("host", m.cfg.Name), zap.Error(err))
		return ActionResult{Success: false, Error: err.Error()}
	}
	logger.Info(ctx, "execution host stopped", zap.String("host", m.cfg.Name))
	return ActionResult{Success: true}
}

// Supervise starts the host whenever it is found down, every interval until ctx is done.
func (m *Manager) Supervise(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.CheckExecutionHostStatus(ctx).Running {
				continue
			}
			if res := m.StartExecutionHost(ctx); !res.Success {
				logger.Warn(ctx, "execution host restart failed", zap.String("error", res.Error))
			}
		}
	}
}
