// Package migrate applies versioned SQL migrations to PostgreSQL.
//
// Scripts are named V<version>__<description>.sql and applied in version
// order. Applied scripts are recorded in a history table using the Flyway
// layout (installed_rank, version, description, type, script, checksum,
// installed_by, installed_on, execution_time, success), so databases
// migrated by either tool stay compatible.
//
//	engine := migrate.NewSQLEngine(migrate.WithLogger(log))
//	result, err := engine.Migrate(ctx, migrate.Config{
//	    URL:       "postgres://localhost:5432/app?sslmode=disable",
//	    User:      "postgres",
//	    Password:  "postgres",
//	    Locations: []string{"db/migration"},
//	    Schemas:   []string{"public"},
//	})
//
// Properties (optionally prefixed with "flyway."): defaultSchema, table,
// validateOnMigrate, installedBy and placeholders.<name> for ${name}
// substitution.
package migrate
