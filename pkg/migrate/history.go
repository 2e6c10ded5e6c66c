package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// AppliedMigration is a row of the history table
type AppliedMigration struct {
	InstalledRank int
	Version       string
	Description   string
	Script        string
	Checksum      sql.NullInt32
	Success       bool
}

// history reads and writes a Flyway-layout history table
type history struct {
	schema string
	table  string
}

func (h history) qualified() string {
	return pq.QuoteIdentifier(h.schema) + "." + pq.QuoteIdentifier(h.table)
}

func (h history) create(ctx context.Context, db *sql.DB) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"installed_rank" INT NOT NULL PRIMARY KEY,
	"version" VARCHAR(50),
	"description" VARCHAR(200) NOT NULL,
	"type" VARCHAR(20) NOT NULL,
	"script" VARCHAR(1000) NOT NULL,
	"checksum" INTEGER,
	"installed_by" VARCHAR(100) NOT NULL,
	"installed_on" TIMESTAMP NOT NULL DEFAULT now(),
	"execution_time" INTEGER NOT NULL,
	"success" BOOLEAN NOT NULL
)`, h.qualified())

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create history table %s: %w", h.qualified(), err)
	}
	return nil
}

func (h history) applied(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	query := fmt.Sprintf(`SELECT installed_rank, version, description, script, checksum, success
		FROM %s ORDER BY installed_rank`, h.qualified())

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read history table: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var (
			m       AppliedMigration
			version sql.NullString
		)
		if err := rows.Scan(&m.InstalledRank, &version, &m.Description, &m.Script, &m.Checksum, &m.Success); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		m.Version = version.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (h history) record(ctx context.Context, tx *sql.Tx, rank int, s Script, installedBy string, elapsed time.Duration) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(installed_rank, version, description, type, script, checksum, installed_by, execution_time, success)
		VALUES ($1, $2, $3, 'SQL', $4, $5, $6, $7, true)`, h.qualified())

	_, err := tx.ExecContext(ctx, query,
		rank, s.Version.String(), s.Description, s.Name, s.Checksum, installedBy, elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", s.Name, err)
	}
	return nil
}

// CurrentVersion returns the highest successfully applied version, or "" for an empty history
func CurrentVersion(ctx context.Context, db *sql.DB, schema, table string) (string, error) {
	h := history{schema: schema, table: table}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT version FROM %s WHERE success AND version IS NOT NULL`, h.qualified()))
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return MaxVersion(versions), nil
}
