package codegen

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/platinummonkey/dockgen/pkg/migrate"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result describes the files of a generator run
type Result struct {
	SchemaVersion string   `yaml:"schema_version"`
	Tables        int      `yaml:"tables"`
	Files         []string `yaml:"files"`
}

// Generator turns a live schema into Go source
type Generator interface {
	Generate(ctx context.Context, cfg Config) (*Result, error)
}

// OpenFunc opens a database handle
type OpenFunc func(driver, dsn string) (*sql.DB, error)

// SchemaGenerator introspects the database in-process and writes one file per table
type SchemaGenerator struct {
	log     logrus.FieldLogger
	metrics *observability.Metrics
	open    OpenFunc
	workers int
}

// Option configures a SchemaGenerator
type Option func(*SchemaGenerator)

// WithLogger sets the generator logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *SchemaGenerator) {
		g.log = log
	}
}

// WithMetrics counts written files
func WithMetrics(m *observability.Metrics) Option {
	return func(g *SchemaGenerator) {
		g.metrics = m
	}
}

// WithOpener replaces sql.Open
func WithOpener(open OpenFunc) Option {
	return func(g *SchemaGenerator) {
		g.open = open
	}
}

// WithWorkers bounds concurrent file rendering
func WithWorkers(n int) Option {
	return func(g *SchemaGenerator) {
		g.workers = n
	}
}

// NewSchemaGenerator creates an in-process generator
func NewSchemaGenerator(opts ...Option) *SchemaGenerator {
	g := &SchemaGenerator{
		open:    sql.Open,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = observability.OrDefault(g.log)
	if g.workers < 1 {
		g.workers = 1
	}
	return g
}

type outputFile struct {
	path   string
	render func() ([]byte, error)
}

// Generate introspects every configured schema and writes the generated
// packages below cfg.Target.Directory.
func (g *SchemaGenerator) Generate(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := cfg.filter()
	if err != nil {
		return nil, err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	introspectorName := cfg.Introspector
	if introspectorName == "" {
		introspectorName = "postgres"
	}
	introspector, err := GetIntrospector(introspectorName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	dsn, err := migrate.DSN(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	db, err := g.open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrGenerationFailed, err)
	}
	defer db.Close()

	result := &Result{}
	if src := cfg.SchemaVersion; src != nil {
		result.SchemaVersion, err = migrate.CurrentVersion(ctx, db, src.Schema, src.Table)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	strategy := StrategyFor(cfg.Strategy)
	base := filepath.Join(cfg.Target.Directory, cfg.Target.Package)
	if cfg.Target.Clean {
		if err := os.RemoveAll(base); err != nil {
			return nil, fmt.Errorf("%w: failed to clean %s: %v", ErrGenerationFailed, base, err)
		}
	}

	var files []outputFile
	seen := make(map[string]string)
	add := func(path, owner string, render func() ([]byte, error)) error {
		if prev, ok := seen[path]; ok {
			return fmt.Errorf("%w: %s is produced by both %s and %s", ErrGenerationFailed, path, prev, owner)
		}
		seen[path] = owner
		files = append(files, outputFile{path: path, render: render})
		return nil
	}

	// package level names per output directory, so tables that map to the
	// same Go identifier fail here instead of in the compiler
	declared := make(map[string]map[string]string)
	declare := func(dir, owner string, ids []string) error {
		names := declared[dir]
		if names == nil {
			names = make(map[string]string)
			declared[dir] = names
		}
		for _, id := range ids {
			if prev, ok := names[id]; ok && prev != owner {
				return fmt.Errorf("%w: identifier %s in %s is declared by both %s and %s", ErrGenerationFailed, id, dir, prev, owner)
			}
			names[id] = owner
		}
		return nil
	}

	for _, schema := range cfg.Schemata {
		log := g.log.WithField("schema", schema.InputSchema)

		tables, err := introspector.Tables(ctx, db, schema.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		relDir := PackagePath(strategy, cfg.Target.Package, schema)
		dir := filepath.Join(cfg.Target.Directory, filepath.FromSlash(relDir))
		pkg := filepath.Base(relDir)

		version := result.SchemaVersion
		if err := add(filepath.Join(dir, schemaFile), schema.InputSchema, func() ([]byte, error) {
			return RenderSchema(pkg, schema.InputSchema, version)
		}); err != nil {
			return nil, err
		}
		if err := declare(dir, "schema "+schema.InputSchema, SchemaIdentifiers); err != nil {
			return nil, err
		}

		generated := 0
		for _, t := range tables {
			if !filter.Accept(t.Schema, t.Name) {
				log.WithField("table", t.Name).Debug("Table excluded")
				continue
			}
			if err := declare(dir, t.Schema+"."+t.Name, TableIdentifiers(strategy, t)); err != nil {
				return nil, err
			}
			name := TableFileName(t.Name)
			if err := add(filepath.Join(dir, name), t.Schema+"."+t.Name, func() ([]byte, error) {
				return RenderTable(strategy, pkg, schema, t, version)
			}); err != nil {
				return nil, err
			}
			generated++
		}
		result.Tables += generated
		log.WithField("tables", generated).Info("Schema introspected")
	}

	if err := g.write(ctx, files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	for _, f := range files {
		result.Files = append(result.Files, f.path)
	}
	g.metrics.AddGeneratedFiles(len(result.Files))
	g.log.WithFields(logrus.Fields{
		"files":   len(result.Files),
		"version": result.SchemaVersion,
	}).Info("Code generation complete")

	return result, nil
}

// write renders and writes files concurrently
func (g *SchemaGenerator) write(ctx context.Context, files []outputFile) error {
	var dirs sync.Map

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			src, err := f.render()
			if err != nil {
				return fmt.Errorf("%s: %w", f.path, err)
			}

			dir := filepath.Dir(f.path)
			if _, done := dirs.Load(dir); !done {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				dirs.Store(dir, true)
			}
			return os.WriteFile(f.path, src, 0o644)
		})
	}
	return eg.Wait()
}

// schemaFile holds the package level constants of a schema package
const schemaFile = "dockgen_schema.go"

// TableFileName is the file name of a table's source, never a _test.go file
func TableFileName(table string) string {
	name := SanitizePackage(table)
	if strings.HasSuffix(name, "_test") {
		name += "_"
	}
	return name + ".go"
}

var _ Generator = (*SchemaGenerator)(nil)
