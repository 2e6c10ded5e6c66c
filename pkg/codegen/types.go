package codegen

import "strings"

// GoType is the Go representation of a column type
type GoType struct {
	Name   string
	Import string
}

var nullable = map[string]GoType{
	"int16":     {Name: "sql.NullInt16", Import: "database/sql"},
	"int32":     {Name: "sql.NullInt32", Import: "database/sql"},
	"int64":     {Name: "sql.NullInt64", Import: "database/sql"},
	"float32":   {Name: "sql.NullFloat64", Import: "database/sql"},
	"float64":   {Name: "sql.NullFloat64", Import: "database/sql"},
	"bool":      {Name: "sql.NullBool", Import: "database/sql"},
	"string":    {Name: "sql.NullString", Import: "database/sql"},
	"time.Time": {Name: "sql.NullTime", Import: "database/sql"},
}

// MapPostgresType maps a column to a Go type. Nullable scalars become sql.Null* types.
func MapPostgresType(c Column) GoType {
	t := basePostgresType(c)
	if c.Nullable {
		if n, ok := nullable[t.Name]; ok {
			return n
		}
	}
	return t
}

func basePostgresType(c Column) GoType {
	if c.DataType == "ARRAY" {
		switch strings.TrimPrefix(c.UDTName, "_") {
		case "int2", "int4", "int8":
			return GoType{Name: "pq.Int64Array", Import: "github.com/lib/pq"}
		case "float4", "float8", "numeric":
			return GoType{Name: "pq.Float64Array", Import: "github.com/lib/pq"}
		case "bool":
			return GoType{Name: "pq.BoolArray", Import: "github.com/lib/pq"}
		case "bytea":
			return GoType{Name: "pq.ByteaArray", Import: "github.com/lib/pq"}
		default:
			return GoType{Name: "pq.StringArray", Import: "github.com/lib/pq"}
		}
	}

	switch c.UDTName {
	case "int2":
		return GoType{Name: "int16"}
	case "int4":
		return GoType{Name: "int32"}
	case "int8":
		return GoType{Name: "int64"}
	case "float4":
		return GoType{Name: "float32"}
	case "float8":
		return GoType{Name: "float64"}
	case "bool":
		return GoType{Name: "bool"}
	case "bytea":
		return GoType{Name: "[]byte"}
	case "json", "jsonb":
		return GoType{Name: "json.RawMessage", Import: "encoding/json"}
	case "date", "time", "timetz", "timestamp", "timestamptz":
		return GoType{Name: "time.Time", Import: "time"}
	default:
		// numeric, text, varchar, uuid, enums and anything else round-trips through text
		return GoType{Name: "string"}
	}
}
