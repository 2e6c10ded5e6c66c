package environment

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultReadinessTimeout bounds the external port wait after the in-container probe finished
const DefaultReadinessTimeout = 20 * time.Second

// DefaultTeardownTimeout bounds the final container removal
const DefaultTeardownTimeout = 30 * time.Second

// PortBinding maps the port the service listens on inside the container to the published host port
type PortBinding struct {
	ContainerPort int
	HostPort      int
}

// ContainerSpec describes the single container of an orchestration run
type ContainerSpec struct {
	// Image is the full image reference, e.g. "postgres:11.2-alpine"
	Image string

	// Env is passed to the container as NAME=value pairs
	Env map[string]string

	Ports PortBinding

	// ReadinessCommand is executed inside the container and must block until the service accepts connections
	ReadinessCommand []string

	// Name must be unique per concurrent run
	Name string
}

// Validate checks that the container can be provisioned
func (s ContainerSpec) Validate() error {
	if s.Image == "" {
		return fmt.Errorf("%w: image is required", ErrConfiguration)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: container name is required", ErrConfiguration)
	}
	if !validPort(s.Ports.ContainerPort) {
		return fmt.Errorf("%w: invalid container port %d", ErrConfiguration, s.Ports.ContainerPort)
	}
	if !validPort(s.Ports.HostPort) {
		return fmt.Errorf("%w: invalid host port %d", ErrConfiguration, s.Ports.HostPort)
	}
	if len(s.ReadinessCommand) == 0 {
		return fmt.Errorf("%w: readiness command is required", ErrConfiguration)
	}
	return nil
}

// EnvList renders Env as sorted NAME=value pairs
func (s ContainerSpec) EnvList() []string {
	env := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// State is the lifecycle position of a managed container
type State int

const (
	StateUnstarted State = iota
	StateImagePulled
	StateCreated
	StateRunning
	StateReadyChecked
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateImagePulled:
		return "image-pulled"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateReadyChecked:
		return "ready-checked"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ContainerManager provisions and tears down exactly one named container
type ContainerManager interface {
	// DaemonHost returns the container runtime endpoint URI
	DaemonHost() string

	// PullImage blocks until the image is available locally
	PullImage(ctx context.Context, imageRef string) error

	// Start creates and starts the container described by spec
	Start(ctx context.Context, spec ContainerSpec) error

	// AwaitReady runs the in-container readiness probe and then waits for the published port on host
	AwaitReady(ctx context.Context, host string, spec ContainerSpec) error

	// Remove force-removes the named container and its anonymous volumes.
	// Failures are logged, never returned.
	Remove(ctx context.Context, name string)

	// Close releases the runtime client
	Close() error
}

// Action is the caller's work executed against a ready database
type Action func(ctx context.Context, host string) error
