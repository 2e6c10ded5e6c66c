package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/platinummonkey/dockgen/pkg/codegen"
	"github.com/platinummonkey/dockgen/pkg/config"
	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/platinummonkey/dockgen/pkg/environment/docker"
	"github.com/platinummonkey/dockgen/pkg/migrate"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/platinummonkey/dockgen/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Version is set at build time
var Version = "dev"

// Deps are the collaborators a command builds. Tests replace them.
type Deps struct {
	NewManager   func(ctx context.Context, log logrus.FieldLogger, metrics *observability.Metrics) (environment.ContainerManager, error)
	NewMigrator  func(log logrus.FieldLogger, metrics *observability.Metrics) migrate.Engine
	NewGenerator func(cfg *config.Config, log logrus.FieldLogger, metrics *observability.Metrics) (codegen.Generator, error)
	Out          io.Writer
	Err          io.Writer
}

// DefaultDeps talk to the local Docker daemon and run migrations and generation in-process
func DefaultDeps() Deps {
	return Deps{
		NewManager: func(ctx context.Context, log logrus.FieldLogger, metrics *observability.Metrics) (environment.ContainerManager, error) {
			return docker.NewDockerManager(ctx, docker.WithLogger(log), docker.WithMetrics(metrics))
		},
		NewMigrator: func(log logrus.FieldLogger, metrics *observability.Metrics) migrate.Engine {
			return migrate.NewSQLEngine(migrate.WithLogger(log), migrate.WithMetrics(metrics))
		},
		NewGenerator: newGenerator,
		Out:          os.Stdout,
		Err:          os.Stderr,
	}
}

// newGenerator picks the in-process or the subprocess generator
func newGenerator(cfg *config.Config, log logrus.FieldLogger, metrics *observability.Metrics) (codegen.Generator, error) {
	command := cfg.Generation.GeneratorCommand
	if len(command) == 0 {
		return codegen.NewSchemaGenerator(codegen.WithLogger(log), codegen.WithMetrics(metrics)), nil
	}

	path, args := command[0], command[1:]
	if len(command) == 1 && path == "self" {
		path, args = "", nil
	}
	generator, err := codegen.NewCommandGenerator(path, args, log)
	if err != nil {
		return nil, err
	}
	return generator, nil
}

// rootOptions are the persistent flags
type rootOptions struct {
	configPath    string
	verbose       bool
	containerName string
	hostOverride  string
}

// app holds what a command run shares
type app struct {
	deps    Deps
	opts    *rootOptions
	cfg     *config.Config
	log     *logrus.Logger
	metrics *observability.Metrics
	tp      *sdktrace.TracerProvider
}

// load reads the configuration and sets up logging, metrics and tracing
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.NewViper(), a.opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("container-name") {
		cfg.Image.ContainerName = a.opts.containerName
	}
	if flags.Changed("host-override") {
		cfg.Database.HostOverride = a.opts.hostOverride
	}
	a.cfg = cfg

	level := observability.ParseLogLevel(cfg.Observability.LogLevel)
	if a.opts.verbose {
		level = observability.DebugLevel
	}
	a.log = observability.NewLogger(level, cfg.Observability.LogFormat, a.deps.Err)
	a.metrics = observability.NewMetrics(prometheus.NewRegistry())

	a.tp, err = observability.InitTracing(cmd.Context(), observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: Version,
		Insecure:       cfg.Observability.OTelInsecure,
	}, a.log)
	if err != nil {
		a.log.WithError(err).Warn("Tracing disabled")
	}
	return nil
}

// close flushes traces and pushes metrics; failures are only logged
func (a *app) close() {
	if a.log == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.metrics.Push(ctx, a.cfg.Observability.MetricsPushURL, a.cfg.Observability.MetricsJob); err != nil {
		a.log.WithError(err).Warn("Failed to push metrics")
	}
	if err := observability.ShutdownTracing(ctx, a.tp); err != nil {
		a.log.WithError(err).Warn("Failed to shut down tracing")
	}
}

// run executes a pipeline run in mode
func (a *app) run(ctx context.Context, mode pipeline.Mode) (*pipeline.Report, error) {
	ctx, cancel := observability.SignalContext(ctx, a.log)
	defer cancel()

	manager, err := a.deps.NewManager(ctx, a.log, a.metrics)
	if err != nil {
		return nil, &environment.StageError{Stage: environment.StageProvision, Err: err}
	}
	defer manager.Close()

	orchestrator := environment.NewOrchestrator(manager,
		environment.HostResolver{Override: a.cfg.Database.HostOverride},
		environment.WithLogger(a.log),
		environment.WithMetrics(a.metrics),
	)

	var generation *pipeline.GenerationDriver
	if mode == pipeline.ModeGenerate {
		generator, err := a.deps.NewGenerator(a.cfg, a.log, a.metrics)
		if err != nil {
			return nil, &environment.StageError{Stage: environment.StageConfigure, Err: err}
		}
		generation = pipeline.NewGenerationDriver(generator, a.log)
	}

	runner := pipeline.NewRunner(a.cfg, orchestrator,
		pipeline.NewMigrationDriver(a.deps.NewMigrator(a.log, a.metrics), a.log),
		generation,
		a.log,
	)
	return runner.Run(ctx, mode)
}
