package isolation

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
)

const mb int64 = 1024 * 1024

// DockerRuntime implements Runtime over the Docker Engine API.
type DockerRuntime struct {
	cli *client.Client
}

// NewDockerRuntime connects using the standard DOCKER_* environment.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerRuntime{cli: cli}, nil
}

func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

func (d *DockerRuntime) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

func (d *DockerRuntime) Inspect(ctx context.Context, name string) (ContainerState, error) {
	info, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ContainerState{}, ErrContainerNotFound
		}
		return ContainerState{}, err
	}
	if info.ContainerJSONBase == nil {
		return ContainerState{}, fmt.Errorf("inspect %s: empty response", name)
	}
	running := info.State != nil && info.State.Running
	return ContainerState{ID: info.ID, Running: running}, nil
}

func (d *DockerRuntime) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *DockerRuntime) Pull(ctx context.Context, ref string) error {
	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	// the pull only completes once the progress stream is drained
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (d *DockerRuntime) Create(ctx context.Context, cfg HostConfig) (string, error) {
	containerCfg, hostCfg, err := containerSpec(cfg)
	if err != nil {
		return "", err
	}
	resp, err := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, cfg.Name)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (d *DockerRuntime) Start(ctx context.Context, id string) error {
	return d.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (d *DockerRuntime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	seconds := int(timeout / time.Second)
	return d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &seconds})
}

// containerSpec translates HostConfig into Docker create options.
func containerSpec(cfg HostConfig) (*container.Config, *container.HostConfig, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(cfg.ContainerPort))
	if err != nil {
		return nil, nil, fmt.Errorf("container port: %w", err)
	}
	pidsLimit := cfg.PidsLimit
	memory := cfg.MemoryMB * mb

	containerCfg := &container.Config{
		Image:        cfg.Image,
		Env:          cfg.Env,
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{"app": "codesandbox", "role": "execution-host"},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: cfg.HostAddress, HostPort: strconv.Itoa(cfg.HostPort)}},
		},
		Resources: container.Resources{
			NanoCPUs:   int64(cfg.CPUs * 1e9),
			Memory:     memory,
			MemorySwap: memory, // no swap
			PidsLimit:  &pidsLimit,
		},
		SecurityOpt:   []string{"no-new-privileges"},
		CapDrop:       []string{"ALL"},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	return containerCfg, hostCfg, nil
}
