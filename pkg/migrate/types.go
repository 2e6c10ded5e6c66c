package migrate

import "context"

// DefaultTable is the history table name used when none is configured
const DefaultTable = "flyway_schema_history"

// Config describes one migration run
type Config struct {
	// URL is the database URL without credentials, e.g. postgres://localhost:5432/app?sslmode=disable
	URL      string
	User     string
	Password string

	// Locations are directories scanned recursively for V<version>__<description>.sql scripts
	Locations []string

	// Schemas are created when missing. The first one is the default schema
	// unless DefaultSchema is set.
	Schemas       []string
	DefaultSchema string

	// Table is the history table inside DefaultSchema
	Table string

	// Properties are engine overrides. Keys may carry a "flyway." prefix.
	Properties map[string]string
}

// Result summarises a migration run
type Result struct {
	DefaultSchema  string
	Table          string
	InitialVersion string
	TargetVersion  string
	Applied        []string
}

// Engine applies versioned migrations to a database
type Engine interface {
	Migrate(ctx context.Context, cfg Config) (*Result, error)
}
