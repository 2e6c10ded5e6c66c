package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/platinummonkey/dockgen/pkg/environment"
)

// LabelManaged marks containers created by dockgen
const LabelManaged = "dev.dockgen.managed"

// Engine is the part of the Docker Engine API the Manager drives
type Engine interface {
	// DaemonHost returns the daemon endpoint URI, e.g. unix:///var/run/docker.sock
	DaemonHost() string

	// PullImage pulls ref and blocks until the pull finished, writing progress to progress
	PullImage(ctx context.Context, ref, registryAuth string, progress io.Writer) error

	// CreateContainer creates a stopped container named spec.Name
	CreateContainer(ctx context.Context, spec environment.ContainerSpec) error

	StartContainer(ctx context.Context, name string) error

	// Exec runs cmd inside the named container, streams its output and returns the exit code
	Exec(ctx context.Context, name string, cmd []string, output io.Writer) (int, error)

	// RemoveContainer force-removes the container and its anonymous volumes.
	// A missing container yields ErrContainerNotFound.
	RemoveContainer(ctx context.Context, name string) error

	Close() error
}

// ClientEngine implements Engine with the Docker SDK client
type ClientEngine struct {
	cli *client.Client
}

// NewClientEngine connects to the daemon configured by the DOCKER_* environment
func NewClientEngine(ctx context.Context) (*ClientEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	// Verify Docker is available
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	return &ClientEngine{cli: cli}, nil
}

func (e *ClientEngine) DaemonHost() string {
	return e.cli.DaemonHost()
}

func (e *ClientEngine) PullImage(ctx context.Context, ref, registryAuth string, progress io.Writer) error {
	reader, err := e.cli.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: registryAuth})
	if err != nil {
		return err
	}
	defer reader.Close()

	// Errors after the pull started only show up inside the progress stream
	return jsonmessage.DisplayJSONMessagesStream(reader, progress, 0, false, nil)
}

func (e *ClientEngine) CreateContainer(ctx context.Context, spec environment.ContainerSpec) error {
	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Ports.ContainerPort))

	config := &container.Config{
		Image:        spec.Image,
		Env:          spec.EnvList(),
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{LabelManaged: "true"},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: strconv.Itoa(spec.Ports.HostPort)}},
		},
	}

	_, err := e.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	return err
}

func (e *ClientEngine) StartContainer(ctx context.Context, name string) error {
	return e.cli.ContainerStart(ctx, name, container.StartOptions{})
}

func (e *ClientEngine) Exec(ctx context.Context, name string, cmd []string, output io.Writer) (int, error) {
	created, err := e.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, fmt.Errorf("exec create: %w", err)
	}

	attach, err := e.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	// Reading to EOF blocks until the command exits
	if _, err := stdcopy.StdCopy(output, output, attach.Reader); err != nil {
		return -1, fmt.Errorf("exec output: %w", err)
	}

	inspect, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return -1, fmt.Errorf("exec inspect: %w", err)
	}
	return inspect.ExitCode, nil
}

func (e *ClientEngine) RemoveContainer(ctx context.Context, name string) error {
	err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	return err
}

func (e *ClientEngine) Close() error {
	return e.cli.Close()
}
