package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Manager drives one named container through its lifecycle on an Engine.
// A Manager is not safe for concurrent use; give every run its own.
type Manager struct {
	engine           Engine
	log              *logrus.Entry
	metrics          *observability.Metrics
	auth             RegistryAuthFunc
	readinessTimeout time.Duration

	state    environment.State
	closed   bool
	closeErr error
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = log.WithField("component", "docker")
	}
}

// WithMetrics counts swallowed removal failures
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithRegistryAuth sets how pull credentials are found
func WithRegistryAuth(auth RegistryAuthFunc) Option {
	return func(m *Manager) {
		m.auth = auth
	}
}

// WithReadinessTimeout bounds the published port wait
func WithReadinessTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.readinessTimeout = d
	}
}

// NewManager creates a manager over engine
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:           engine,
		readinessTimeout: environment.DefaultReadinessTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = observability.OrDefault(nil).WithField("component", "docker")
	}
	return m
}

// NewDockerManager connects to the local Docker daemon and reads pull
// credentials from the Docker config.
func NewDockerManager(ctx context.Context, opts ...Option) (*Manager, error) {
	engine, err := NewClientEngine(ctx)
	if err != nil {
		return nil, err
	}
	return NewManager(engine, append([]Option{WithRegistryAuth(DockerConfigAuth)}, opts...)...), nil
}

// State returns the current lifecycle position
func (m *Manager) State() environment.State {
	return m.state
}

func (m *Manager) DaemonHost() string {
	return m.engine.DaemonHost()
}

// PullImage pulls imageRef, using registry credentials when available
func (m *Manager) PullImage(ctx context.Context, imageRef string) error {
	switch m.state {
	case environment.StateUnstarted, environment.StateImagePulled, environment.StateRemoved:
	default:
		return m.invalidState("pull image")
	}

	auth := ""
	if m.auth != nil {
		encoded, err := m.auth(imageRef)
		if err != nil {
			m.log.WithError(err).Debug("Pulling without registry credentials")
		} else {
			auth = encoded
		}
	}

	progress := m.log.WithField("image", imageRef).WriterLevel(logrus.DebugLevel)
	defer progress.Close()

	if err := m.engine.PullImage(ctx, imageRef, auth, progress); err != nil {
		return fmt.Errorf("%w: %w: %s: %v", environment.ErrProvisioning, ErrImagePullFailed, imageRef, err)
	}

	m.state = environment.StateImagePulled
	return nil
}

// Start creates and starts the container. A container that was created but
// failed to start is removed before returning.
func (m *Manager) Start(ctx context.Context, spec environment.ContainerSpec) error {
	if m.state != environment.StateImagePulled {
		return m.invalidState("start container")
	}

	if err := m.engine.CreateContainer(ctx, spec); err != nil {
		return fmt.Errorf("%w: %w: create %s: %v", environment.ErrProvisioning, ErrContainerFailed, spec.Name, err)
	}
	m.state = environment.StateCreated

	if err := m.engine.StartContainer(ctx, spec.Name); err != nil {
		m.Remove(context.WithoutCancel(ctx), spec.Name)
		return fmt.Errorf("%w: %w: start %s: %v", environment.ErrProvisioning, ErrContainerFailed, spec.Name, err)
	}

	m.state = environment.StateRunning
	m.log.WithField("container", spec.Name).Debug("Container started")
	return nil
}

// AwaitReady runs the readiness command inside the container, then waits
// until the published port accepts connections on host.
//
// A non-zero probe exit code is logged and the port wait decides readiness.
// When both fail the error carries ErrProbeFailed and the exit code as well
// as the readiness timeout.
func (m *Manager) AwaitReady(ctx context.Context, host string, spec environment.ContainerSpec) error {
	if m.state != environment.StateRunning {
		return m.invalidState("await readiness")
	}

	log := m.log.WithField("container", spec.Name)
	output := log.WriterLevel(logrus.DebugLevel)
	exitCode, err := m.engine.Exec(ctx, spec.Name, spec.ReadinessCommand, output)
	output.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	if exitCode != 0 {
		log.WithField("exit_code", exitCode).Warn("Readiness probe exited with non-zero status")
	}

	if err := environment.WaitForPort(ctx, host, spec.Ports.HostPort, m.readinessTimeout); err != nil {
		if exitCode != 0 {
			return fmt.Errorf("%w: exit code %d: %w", ErrProbeFailed, exitCode, err)
		}
		return err
	}

	m.state = environment.StateReadyChecked
	return nil
}

// Remove force-removes the named container. Errors are logged and counted.
func (m *Manager) Remove(ctx context.Context, name string) {
	log := m.log.WithField("container", name)

	err := m.engine.RemoveContainer(ctx, name)
	switch {
	case err == nil:
		log.Debug("Container removed")
	case errors.Is(err, ErrContainerNotFound):
		log.Debug("No container to remove")
	default:
		log.WithError(err).Warn("Failed to remove container")
		m.metrics.RecordTeardownFailure()
	}

	// removing a stale container before the first pull leaves the cycle untouched
	if m.state != environment.StateUnstarted {
		m.state = environment.StateRemoved
	}
}

// Close releases the engine. Calling Close again returns the first result.
func (m *Manager) Close() error {
	if m.closed {
		return m.closeErr
	}
	m.closed = true
	m.closeErr = m.engine.Close()
	return m.closeErr
}

func (m *Manager) invalidState(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", environment.ErrInvalidState, op, m.state)
}

var _ environment.ContainerManager = (*Manager)(nil)
