package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/dockgen/pkg/contextkeys"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator runs an action against a disposable containerized database
type Orchestrator struct {
	manager         ContainerManager
	resolver        HostResolver
	log             logrus.FieldLogger
	metrics         *observability.Metrics
	tracer          trace.Tracer
	teardownTimeout time.Duration
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithMetrics records stage durations and run outcomes
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer overrides the tracer used for stage spans
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithTeardownTimeout bounds the final container removal
func WithTeardownTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.teardownTimeout = d
	}
}

// NewOrchestrator creates an orchestrator over manager
func NewOrchestrator(manager ContainerManager, resolver HostResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		manager:         manager,
		resolver:        resolver,
		teardownTimeout: DefaultTeardownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = observability.OrDefault(o.log)
	if o.tracer == nil {
		o.tracer = observability.Tracer()
	}
	return o
}

// Run provisions the container described by spec, calls action with the
// resolved database host and removes the container on every exit path.
//
// Sequence: resolve host, remove stale container, pull, start, await
// readiness, action, remove. A panic inside action is re-raised after
// teardown.
func (o *Orchestrator) Run(ctx context.Context, spec ContainerSpec, action Action) (err error) {
	runID := contextkeys.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = contextkeys.WithRunID(ctx, runID)
	}

	ctx, span := o.tracer.Start(ctx, "environment.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("container", spec.Name),
		attribute.String("image", spec.Image),
	))
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic in orchestration run: %v", r)
			observability.EndSpan(span, perr)
			o.metrics.RecordRun(perr)
			panic(r)
		}
		observability.EndSpan(span, err)
		o.metrics.RecordRun(err)
	}()

	if err := o.runStage(ctx, StageConfigure, func(context.Context) error {
		return spec.Validate()
	}); err != nil {
		return err
	}

	var host string
	if err := o.runStage(ctx, StageResolve, func(context.Context) error {
		var err error
		host, err = o.resolver.Resolve(o.manager.DaemonHost())
		return err
	}); err != nil {
		return err
	}

	log := o.log.WithFields(logrus.Fields{
		"run_id":    runID,
		"container": spec.Name,
		"image":     spec.Image,
		"host":      host,
	})

	log.Debug("Removing stale container")
	o.manager.Remove(ctx, spec.Name)

	defer o.teardown(ctx, spec.Name, log)

	if err := o.runStage(ctx, StageProvision, func(ctx context.Context) error {
		log.Info("Pulling image")
		if err := o.manager.PullImage(ctx, spec.Image); err != nil {
			return err
		}
		log.Info("Starting container")
		return o.manager.Start(ctx, spec)
	}); err != nil {
		return err
	}

	if err := o.runStage(ctx, StageReadiness, func(ctx context.Context) error {
		log.WithField("port", spec.Ports.HostPort).Info("Waiting for database")
		return o.manager.AwaitReady(ctx, host, spec)
	}); err != nil {
		return err
	}

	log.Info("Database ready")
	return o.runStage(ctx, StageAction, func(ctx context.Context) error {
		return action(ctx, host)
	})
}

// RunWithResult is Run for actions producing a value
func RunWithResult[T any](ctx context.Context, o *Orchestrator, spec ContainerSpec, action func(ctx context.Context, host string) (T, error)) (T, error) {
	var result T
	err := o.Run(ctx, spec, func(ctx context.Context, host string) error {
		var err error
		result, err = action(ctx, host)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// runStage times fn, opens a span for it and tags its error with stage.
// Errors already carrying a stage keep it.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, fn func(context.Context) error) (err error) {
	ctx, span := o.tracer.Start(ctx, "environment."+string(stage))
	start := time.Now()

	err = fn(ctx)
	if err != nil && StageOf(err) == "" {
		err = &StageError{Stage: stage, Err: err}
	}

	recorded := stage
	if err != nil {
		recorded = StageOf(err)
	}
	o.metrics.ObserveStage(string(recorded), time.Since(start), err)
	observability.EndSpan(span, err)

	if err != nil {
		observability.WithTraceContext(ctx, o.log).WithFields(logrus.Fields{
			"run_id": contextkeys.GetRunID(ctx),
			"stage":  recorded,
		}).WithError(err).Error("Stage failed")
	}
	return err
}

// teardown removes the container with a context detached from caller cancellation
func (o *Orchestrator) teardown(ctx context.Context, name string, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.teardownTimeout)
	defer cancel()

	log.Info("Removing container")
	o.manager.Remove(ctx, name)
}
