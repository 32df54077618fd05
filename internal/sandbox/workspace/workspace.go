// Package workspace manages the per-execution scratch directories.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"codesandbox/internal/sandbox/observer"
	appErr "codesandbox/pkg/errors"
	"codesandbox/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dirPrefix      = "ws-"
	dirMode        = 0o700
	sourceFileMode = 0o600
	sourceBase     = "solution"
)

// Workspace is an isolated directory owned by exactly one execution.
type Workspace struct {
	ID      string
	RootDir string
}

// Manager creates and destroys workspaces under a single root directory.
type Manager struct {
	root    string
	metrics observer.MetricsRecorder
}

// NewManager creates a manager rooted at root. An empty root uses the OS temp dir.
func NewManager(root string, metrics observer.MetricsRecorder) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "codesandbox")
	}
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, appErr.Wrapf(err, appErr.FilesystemError, "create workspace root failed")
	}
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &Manager{root: root, metrics: metrics}, nil
}

// Root returns the directory that holds all workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Create allocates a fresh workspace with a random id.
func (m *Manager) Create(ctx context.Context) (Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, dirPrefix+id)
	// Mkdir fails if the directory exists, so a collision can never share a workspace.
	if err := os.Mkdir(dir, dirMode); err != nil {
		return Workspace{}, appErr.Wrapf(err, appErr.FilesystemError, "create workspace failed").
			WithDetail("workspace", dir)
	}
	logger.Debug(ctx, "workspace created", zap.String("workspace", dir))
	return Workspace{ID: id, RootDir: dir}, nil
}

// WriteSource writes code to solution.<extension> inside ws.
func (m *Manager) WriteSource(ctx context.Context, ws Workspace, code, extension string) (string, error) {
	extension = strings.TrimPrefix(extension, ".")
	if extension == "" {
		return "", appErr.ValidationError("extension", "required")
	}
	return m.WriteNamedSource(ctx, ws, code, sourceBase+"."+extension)
}

// WriteNamedSource writes code to fileName inside ws.
// fileName must be a single path element.
func (m *Manager) WriteNamedSource(ctx context.Context, ws Workspace, code, fileName string) (string, error) {
	if ws.RootDir == "" {
		return "", appErr.New(appErr.FilesystemError).WithMessage("workspace is not initialised")
	}
	if !isPlainFileName(fileName) {
		return "", appErr.ValidationError("fileName", "must be a single path element").
			WithDetail("fileName", fileName)
	}
	path := filepath.Join(ws.RootDir, fileName)
	if err := os.WriteFile(path, []byte(code), sourceFileMode); err != nil {
		return "", appErr.Wrapf(err, appErr.FilesystemError, "write source failed").
			WithDetail("path", path)
	}
	return path, nil
}

// Destroy removes ws and everything under it. Failures are logged, never returned.
func (m *Manager) Destroy(ctx context.Context, ws Workspace) {
	if ws.RootDir == "" {
		return
	}
	if err := os.RemoveAll(ws.RootDir); err != nil {
		m.metrics.ObserveCleanupFailure(ctx)
		logger.Error(ctx, "workspace cleanup failed", zap.String("workspace", ws.RootDir), zap.Error(err))
	}
}

// Purge removes workspaces left behind by a previous process.
func (m *Manager) Purge(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, appErr.Wrapf(err, appErr.FilesystemError, "read workspace root failed")
	}
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn(ctx, "purge stale workspace failed", zap.String("workspace", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func isPlainFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
