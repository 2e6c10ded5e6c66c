package pipeline

import (
	"context"
	"fmt"

	"github.com/platinummonkey/dockgen/pkg/codegen"
	"github.com/platinummonkey/dockgen/pkg/config"
	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/platinummonkey/dockgen/pkg/migrate"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Mode selects what a run does once the database is ready
type Mode int

const (
	// ModeGenerate migrates and then generates code
	ModeGenerate Mode = iota
	// ModeMigrate only applies migrations
	ModeMigrate
)

func (m Mode) String() string {
	if m == ModeMigrate {
		return "migrate"
	}
	return "generate"
}

// Report is the outcome of a successful run
type Report struct {
	Host       string
	Port       int
	Container  string
	Migration  *migrate.Result
	Generation *codegen.Result
}

// Runner wires configuration, orchestrator and drivers into a single run
type Runner struct {
	cfg          *config.Config
	orchestrator *environment.Orchestrator
	migration    *MigrationDriver
	generation   *GenerationDriver
	log          logrus.FieldLogger
}

// NewRunner creates a runner. generation may be nil for ModeMigrate only runners.
func NewRunner(cfg *config.Config, orchestrator *environment.Orchestrator, migration *MigrationDriver, generation *GenerationDriver, log logrus.FieldLogger) *Runner {
	return &Runner{
		cfg:          cfg,
		orchestrator: orchestrator,
		migration:    migration,
		generation:   generation,
		log:          observability.OrDefault(log),
	}
}

// ContainerSpec builds the container of one run from the configuration
func ContainerSpec(cfg *config.Config) (environment.ContainerSpec, error) {
	hostPort, err := cfg.HostPort()
	if err != nil {
		return environment.ContainerSpec{}, fmt.Errorf("%w: %v", environment.ErrConfiguration, err)
	}
	probe, err := cfg.ReadinessCommand()
	if err != nil {
		return environment.ContainerSpec{}, err
	}

	return environment.ContainerSpec{
		Image:            cfg.ImageName(),
		Env:              cfg.EnvVars(),
		Ports:            environment.PortBinding{ContainerPort: cfg.Database.Port, HostPort: hostPort},
		ReadinessCommand: probe,
		Name:             cfg.ContainerName(),
	}, nil
}

// Run provisions the database, migrates, optionally generates and always tears down
func (r *Runner) Run(ctx context.Context, mode Mode) (*Report, error) {
	spec, err := ContainerSpec(r.cfg)
	if err != nil {
		return nil, &environment.StageError{Stage: environment.StageConfigure, Err: err}
	}
	if mode == ModeGenerate && r.generation == nil {
		return nil, &environment.StageError{
			Stage: environment.StageConfigure,
			Err:   fmt.Errorf("%w: no generator configured", environment.ErrConfiguration),
		}
	}

	history := ResolveHistoryTable(r.cfg.Migration.Properties, r.cfg.Generation.Schemas)
	report := &Report{Port: spec.Ports.HostPort, Container: spec.Name}

	r.log.WithFields(logrus.Fields{
		"mode":      mode.String(),
		"container": spec.Name,
		"image":     spec.Image,
	}).Info("Starting run")

	err = r.orchestrator.Run(ctx, spec, func(ctx context.Context, host string) error {
		report.Host = host
		params := NewConnectionParameters(r.cfg, host, spec.Ports.HostPort)

		migration, err := r.migration.Migrate(ctx, params, history, r.cfg.Generation.Schemas, r.cfg.Migration)
		if err != nil {
			return err
		}
		report.Migration = migration

		if mode == ModeMigrate {
			return nil
		}

		generation, err := r.generation.Generate(ctx, params, history, r.cfg.Connection, r.cfg.Generation)
		if err != nil {
			return err
		}
		report.Generation = generation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
