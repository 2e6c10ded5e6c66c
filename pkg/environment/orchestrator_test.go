package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/platinummonkey/dockgen/pkg/contextkeys"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeManager records lifecycle calls and simulates a runtime holding named containers
type fakeManager struct {
	daemonHost string
	calls      []string
	existing   map[string]bool

	pullErr  error
	startErr error
	readyErr error

	readyHost      string
	removeCtxError []error
	closed         int
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		daemonHost: "unix:///var/run/docker.sock",
		existing:   make(map[string]bool),
	}
}

func (f *fakeManager) DaemonHost() string { return f.daemonHost }

func (f *fakeManager) PullImage(ctx context.Context, imageRef string) error {
	f.calls = append(f.calls, "pull")
	return f.pullErr
}

func (f *fakeManager) Start(ctx context.Context, spec ContainerSpec) error {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return f.startErr
	}
	if f.existing[spec.Name] {
		return fmt.Errorf("%w: container name %q already in use", ErrProvisioning, spec.Name)
	}
	f.existing[spec.Name] = true
	return nil
}

func (f *fakeManager) AwaitReady(ctx context.Context, host string, spec ContainerSpec) error {
	f.calls = append(f.calls, "ready")
	f.readyHost = host
	return f.readyErr
}

func (f *fakeManager) Remove(ctx context.Context, name string) {
	f.calls = append(f.calls, "remove")
	f.removeCtxError = append(f.removeCtxError, ctx.Err())
	delete(f.existing, name)
}

func (f *fakeManager) Close() error {
	f.closed++
	return nil
}

func testSpec() ContainerSpec {
	return ContainerSpec{
		Image:            "postgres:11.2-alpine",
		Env:              map[string]string{"POSTGRES_PASSWORD": "postgres"},
		Ports:            PortBinding{ContainerPort: 5432, HostPort: 15432},
		ReadinessCommand: []string{"pg_isready"},
		Name:             "dockgen-test",
	}
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestOrchestrator(m ContainerManager, opts ...Option) *Orchestrator {
	return NewOrchestrator(m, HostResolver{}, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestOrchestrator_Run_Success(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	var actionHost string
	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		m.calls = append(m.calls, "action")
		actionHost = host
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"remove", "pull", "start", "ready", "action", "remove"}, m.calls)
	assert.Equal(t, "localhost", actionHost)
	assert.Equal(t, "localhost", m.readyHost)
	assert.Empty(t, m.existing, "container must not outlive the run")
}

func TestOrchestrator_Run_ActionFailureStillTearsDown(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)
	boom := errors.New("boom")

	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		m.calls = append(m.calls, "action")
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageAction, StageOf(err))
	assert.Equal(t, []string{"remove", "pull", "start", "ready", "action", "remove"}, m.calls)

	teardowns := 0
	for i, c := range m.calls {
		if c == "remove" && i > 0 {
			teardowns++
		}
	}
	assert.Equal(t, 1, teardowns)
	assert.Empty(t, m.existing)
}

func TestOrchestrator_Run_ActionStageIsPreserved(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		return &StageError{Stage: StageMigration, Err: errors.New("syntax error at or near")}
	})

	require.Error(t, err)
	assert.Equal(t, StageMigration, StageOf(err))
	assert.Equal(t, "remove", m.calls[len(m.calls)-1])
}

func TestOrchestrator_Run_ProvisioningFailure(t *testing.T) {
	t.Run("pull", func(t *testing.T) {
		m := newFakeManager()
		m.pullErr = fmt.Errorf("%w: manifest unknown", ErrProvisioning)
		o := newTestOrchestrator(m)

		called := false
		err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.False(t, called)
		assert.ErrorIs(t, err, ErrProvisioning)
		assert.Equal(t, StageProvision, StageOf(err))
		assert.Equal(t, []string{"remove", "pull", "remove"}, m.calls)
	})

	t.Run("start", func(t *testing.T) {
		m := newFakeManager()
		m.startErr = fmt.Errorf("%w: port is already allocated", ErrProvisioning)
		o := newTestOrchestrator(m)

		err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
			return nil
		})

		assert.Equal(t, StageProvision, StageOf(err))
		assert.Equal(t, []string{"remove", "pull", "start", "remove"}, m.calls)
	})
}

func TestOrchestrator_Run_ReadinessTimeout(t *testing.T) {
	m := newFakeManager()
	m.readyErr = &TimeoutError{Host: "localhost", Port: 15432}
	o := newTestOrchestrator(m)

	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		t.Fatal("action must not run")
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadinessTimeout)
	assert.Equal(t, StageReadiness, StageOf(err))
	assert.Equal(t, []string{"remove", "pull", "start", "ready", "remove"}, m.calls)
}

func TestOrchestrator_Run_UnresolvableHost(t *testing.T) {
	m := newFakeManager()
	m.daemonHost = "ssh://user@remote"
	o := newTestOrchestrator(m)

	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, StageResolve, StageOf(err))
	assert.Empty(t, m.calls, "nothing is provisioned before the host resolves")
}

func TestOrchestrator_Run_InvalidSpec(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	spec := testSpec()
	spec.Name = ""
	err := o.Run(context.Background(), spec, func(ctx context.Context, host string) error {
		return nil
	})

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, StageConfigure, StageOf(err))
	assert.Empty(t, m.calls)
}

func TestOrchestrator_Run_PanicStillTearsDown(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	assert.Panics(t, func() {
		_ = o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
			panic("generator exploded")
		})
	})
	assert.Equal(t, []string{"remove", "pull", "start", "ready", "remove"}, m.calls)
	assert.Empty(t, m.existing)
}

func TestOrchestrator_Run_TeardownSurvivesCancellation(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	ctx, cancel := context.WithCancel(context.Background())
	err := o.Run(ctx, testSpec(), func(ctx context.Context, host string) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, m.removeCtxError, 2)
	assert.NoError(t, m.removeCtxError[1], "teardown context must not inherit cancellation")
}

func TestOrchestrator_Run_RemovesStaleContainer(t *testing.T) {
	m := newFakeManager()
	spec := testSpec()
	m.existing[spec.Name] = true
	o := newTestOrchestrator(m)

	err := o.Run(context.Background(), spec, func(ctx context.Context, host string) error {
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, m.existing)
}

func TestOrchestrator_Run_SameNameTwice(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)
	spec := testSpec()

	for i := 0; i < 2; i++ {
		err := o.Run(context.Background(), spec, func(ctx context.Context, host string) error {
			return nil
		})
		require.NoError(t, err, "run %d", i+1)
	}
	assert.Empty(t, m.existing)
}

func TestOrchestrator_Run_HostOverride(t *testing.T) {
	m := newFakeManager()
	m.daemonHost = "ssh://user@remote"
	o := NewOrchestrator(m, HostResolver{Override: "10.1.2.3"}, WithLogger(quietLogger()))

	var got string
	err := o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		got = host
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", got)
}

func TestRunWithResult(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	n, err := RunWithResult(context.Background(), o, testSpec(), func(ctx context.Context, host string) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = RunWithResult(context.Background(), o, testSpec(), func(ctx context.Context, host string) (int, error) {
		return 7, errors.New("failed")
	})
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestOrchestrator_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	m := newFakeManager()
	o := newTestOrchestrator(m, WithMetrics(metrics))

	require.NoError(t, o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		return nil
	}))

	m.readyErr = &TimeoutError{Host: "localhost", Port: 15432}
	require.Error(t, o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		return nil
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageFailuresTotal.WithLabelValues(string(StageReadiness))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StageFailuresTotal.WithLabelValues(string(StageProvision))))
}

func TestOrchestrator_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	m := newFakeManager()
	o := newTestOrchestrator(m, WithTracer(tp.Tracer("test")))

	require.NoError(t, o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		return nil
	}))

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{
		"environment.configure",
		"environment.resolve",
		"environment.provision",
		"environment.readiness",
		"environment.action",
		"environment.run",
	}, names)
}

func TestOrchestrator_Run_RunID(t *testing.T) {
	m := newFakeManager()
	o := newTestOrchestrator(m)

	var generated string
	require.NoError(t, o.Run(context.Background(), testSpec(), func(ctx context.Context, host string) error {
		generated = contextkeys.GetRunID(ctx)
		return nil
	}))
	assert.Len(t, generated, 36)

	var kept string
	ctx := contextkeys.WithRunID(context.Background(), "ci-build-118")
	require.NoError(t, o.Run(ctx, testSpec(), func(ctx context.Context, host string) error {
		kept = contextkeys.GetRunID(ctx)
		return nil
	}))
	assert.Equal(t, "ci-build-118", kept)
}
