package codegen

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Column is a table column in ordinal order
type Column struct {
	Name     string
	DataType string
	UDTName  string
	Nullable bool
	Default  string
}

// Table is a table or view of an input schema
type Table struct {
	Schema     string
	Name       string
	View       bool
	Columns    []Column
	PrimaryKey []string
}

// Introspector reads table definitions of a schema
type Introspector interface {
	Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error)
}

var (
	introspectors   = make(map[string]Introspector)
	introspectorsMu sync.RWMutex
)

// RegisterIntrospector makes an introspector available by name
func RegisterIntrospector(name string, i Introspector) {
	introspectorsMu.Lock()
	defer introspectorsMu.Unlock()
	introspectors[name] = i
}

// GetIntrospector retrieves an introspector by name
func GetIntrospector(name string) (Introspector, error) {
	introspectorsMu.RLock()
	defer introspectorsMu.RUnlock()

	i, ok := introspectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrIntrospectorNotFound, name)
	}
	return i, nil
}

func init() {
	RegisterIntrospector("postgres", PostgresIntrospector{})
}

// PostgresIntrospector reads information_schema
type PostgresIntrospector struct{}

const (
	tablesQuery = `SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	columnsQuery = `SELECT table_name, column_name, data_type, udt_name, is_nullable, COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	primaryKeysQuery = `SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
		ORDER BY kcu.table_name, kcu.ordinal_position`
)

func (PostgresIntrospector) Tables(ctx context.Context, db *sql.DB, schema string) ([]Table, error) {
	byName := make(map[string]*Table)

	rows, err := db.QueryContext(ctx, tablesQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s: %w", schema, err)
	}
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			rows.Close()
			return nil, err
		}
		byName[name] = &Table{Schema: schema, Name: name, View: kind == "VIEW"}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, columnsQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", schema, err)
	}
	for rows.Next() {
		var table, nullable string
		var c Column
		if err := rows.Scan(&table, &c.Name, &c.DataType, &c.UDTName, &nullable, &c.Default); err != nil {
			rows.Close()
			return nil, err
		}
		c.Nullable = nullable == "YES"
		if t, ok := byName[table]; ok {
			t.Columns = append(t.Columns, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, primaryKeysQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary keys of %s: %w", schema, err)
	}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			rows.Close()
			return nil, err
		}
		if t, ok := byName[table]; ok {
			t.PrimaryKey = append(t.PrimaryKey, column)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(byName))
	for _, t := range byName {
		tables = append(tables, *t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}
