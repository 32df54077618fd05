package isolation

import (
	"context"
	"errors"
	"time"
)

// ErrContainerNotFound is returned by Runtime.Inspect for a missing container.
var ErrContainerNotFound = errors.New("container not found")

// ContainerState is the part of a container inspection the manager needs.
type ContainerState struct {
	ID      string
	Running bool
}

// Runtime is the container runtime surface used by Manager.
type Runtime interface {
	Ping(ctx context.Context) error
	Inspect(ctx context.Context, name string) (ContainerState, error)
	ImageExists(ctx context.Context, ref string) (bool, error)
	Pull(ctx context.Context, ref string) error
	Create(ctx context.Context, cfg HostConfig) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
}
