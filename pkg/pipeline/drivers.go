package pipeline

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/platinummonkey/dockgen/pkg/codegen"
	"github.com/platinummonkey/dockgen/pkg/config"
	"github.com/platinummonkey/dockgen/pkg/contextkeys"
	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/platinummonkey/dockgen/pkg/migrate"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
)

// MigrationDriver applies the configured migrations
type MigrationDriver struct {
	engine migrate.Engine
	log    logrus.FieldLogger
}

// NewMigrationDriver creates a driver over engine
func NewMigrationDriver(engine migrate.Engine, log logrus.FieldLogger) *MigrationDriver {
	return &MigrationDriver{engine: engine, log: observability.OrDefault(log)}
}

// Migrate runs the engine against params. Failures carry the migration stage.
func (d *MigrationDriver) Migrate(ctx context.Context, params ConnectionParameters, history HistoryTable, schemas []string, cfg config.MigrationConfig) (*migrate.Result, error) {
	d.log.WithFields(logrus.Fields{
		"run_id":  contextkeys.GetRunID(ctx),
		"url":     params.URL(),
		"history": history.String(),
	}).Info("Applying migrations")

	result, err := d.engine.Migrate(ctx, migrate.Config{
		URL:           params.URL(),
		User:          params.User,
		Password:      params.Password,
		Locations:     cfg.Locations,
		Schemas:       schemas,
		DefaultSchema: history.Schema,
		Table:         history.Table,
		Properties:    cfg.Properties,
	})
	if err != nil {
		return nil, &environment.StageError{Stage: environment.StageMigration, Err: err}
	}
	return result, nil
}

// GenerationDriver cleans the output directory and runs the generator
type GenerationDriver struct {
	generator codegen.Generator
	log       logrus.FieldLogger
}

// NewGenerationDriver creates a driver over generator
func NewGenerationDriver(generator codegen.Generator, log logrus.FieldLogger) *GenerationDriver {
	return &GenerationDriver{generator: generator, log: observability.OrDefault(log)}
}

// GeneratorConfig builds the generator input for one run
func GeneratorConfig(params ConnectionParameters, history HistoryTable, conn config.ConnectionConfig, gen config.GenerationConfig) codegen.Config {
	schemata := make([]codegen.SchemaConfig, 0, len(gen.Schemas))
	for _, s := range gen.Schemas {
		schemata = append(schemata, codegen.SchemaConfig{
			InputSchema:           s,
			OutputSchemaToDefault: slices.Contains(gen.OutputSchemaToDefault, s),
		})
	}

	excludes := gen.Excludes
	if gen.ExcludeHistoryTable {
		excludes = codegen.AppendExclude(excludes, history.Table)
	}

	return codegen.Config{
		Driver:        conn.Driver,
		Introspector:  conn.Introspector,
		URL:           params.URL(),
		User:          params.User,
		Password:      params.Password,
		Schemata:      schemata,
		Strategy:      codegen.StrategyConfig{SchemaToPackage: gen.SchemaToPackage},
		SchemaVersion: &codegen.SchemaVersionSource{Schema: history.Schema, Table: history.Table},
		Includes:      gen.Includes,
		Excludes:      excludes,
		Target: codegen.TargetConfig{
			Package:   gen.BasePackage,
			Directory: gen.OutputDir,
			Clean:     true,
		},
	}
}

// Generate removes the output directory and generates into it. Failures carry the generation stage.
func (d *GenerationDriver) Generate(ctx context.Context, params ConnectionParameters, history HistoryTable, conn config.ConnectionConfig, gen config.GenerationConfig) (*codegen.Result, error) {
	if err := os.RemoveAll(gen.OutputDir); err != nil {
		return nil, &environment.StageError{
			Stage: environment.StageGeneration,
			Err:   fmt.Errorf("failed to clean %s: %w", gen.OutputDir, err),
		}
	}

	d.log.WithFields(logrus.Fields{
		"run_id":  contextkeys.GetRunID(ctx),
		"output":  gen.OutputDir,
		"schemas": gen.Schemas,
	}).Info("Generating code")

	result, err := d.generator.Generate(ctx, GeneratorConfig(params, history, conn, gen))
	if err != nil {
		return nil, &environment.StageError{Stage: environment.StageGeneration, Err: err}
	}
	return result, nil
}
