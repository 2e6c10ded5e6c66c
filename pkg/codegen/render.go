package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

const header = "// Code generated by dockgen. DO NOT EDIT."

var funcs = template.FuncMap{
	"quote":  strconv.Quote,
	"inline": inline,
}

var tableTemplate = template.Must(template.New("table").Funcs(funcs).Parse(header + `
{{- if .SchemaVersion}}
// Schema version: {{.SchemaVersion}}
{{- end}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{end}}
// {{.TypeName}}Table is the name of {{if .View}}view{{else}}table{{end}} {{inline .Schema}}.{{inline .Table}}
const {{.TypeName}}Table = {{quote .QualifiedName}}

// {{.TypeName}} is a row of {{inline .Schema}}.{{inline .Table}}
type {{.TypeName}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} {{.Tag}}
{{- end}}
}

// {{.TypeName}}Columns lists the columns in ordinal order
var {{.TypeName}}Columns = []string{
{{- range .Fields}}
	{{quote .Column}},
{{- end}}
}
{{- if .PrimaryKey}}

// {{.TypeName}}PrimaryKey lists the primary key columns
var {{.TypeName}}PrimaryKey = []string{
{{- range .PrimaryKey}}
	{{quote .}},
{{- end}}
}
{{- end}}
`))

var schemaTemplate = template.Must(template.New("schema").Funcs(funcs).Parse(header + `

// Package {{.Package}} holds the tables of schema {{inline .Schema}}.
package {{.Package}}

// Schema is the database schema these types were generated from
const Schema = {{quote .Schema}}

// SchemaVersion is the migration version the database had during generation
const SchemaVersion = {{quote .SchemaVersion}}
`))

type field struct {
	Name   string
	Type   string
	Column string
	Tag    string
}

type tableData struct {
	Package       string
	Schema        string
	Table         string
	View          bool
	QualifiedName string
	TypeName      string
	SchemaVersion string
	Imports       []string
	Fields        []field
	PrimaryKey    []string
}

// RenderTable produces the formatted Go source of one table
func RenderTable(strategy NamingStrategy, pkg string, schema SchemaConfig, t Table, version string) ([]byte, error) {
	data := tableData{
		Package:       pkg,
		Schema:        t.Schema,
		Table:         t.Name,
		View:          t.View,
		QualifiedName: t.Schema + "." + t.Name,
		TypeName:      strategy.TypeName(t.Name),
		SchemaVersion: version,
		PrimaryKey:    t.PrimaryKey,
	}
	if schema.OutputSchemaToDefault {
		data.QualifiedName = t.Name
	}

	imports := make(map[string]bool)
	used := make(map[string]int)
	for _, c := range t.Columns {
		goType := MapPostgresType(c)
		if goType.Import != "" {
			imports[goType.Import] = true
		}

		name := strategy.FieldName(c.Name)
		// columns like "a_b" and "ab" collide after conversion
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s%d", name, n+1)
		} else {
			used[name] = 1
		}
		data.Fields = append(data.Fields, field{Name: name, Type: goType.Name, Column: c.Name, Tag: structTag(c.Name)})
	}
	for imp := range imports {
		data.Imports = append(data.Imports, imp)
	}
	sort.Strings(data.Imports)

	return execute(tableTemplate, data)
}

// structTag renders the db tag of column as a Go literal. Raw literals are
// kept for readability unless the column name holds a backquote.
func structTag(column string) string {
	tag := "db:" + strconv.Quote(column)
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// inline makes s safe inside a line comment
func inline(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// SchemaIdentifiers are declared by the package file of every schema
var SchemaIdentifiers = []string{"Schema", "SchemaVersion"}

// TableIdentifiers lists the package level names RenderTable declares for t
func TableIdentifiers(strategy NamingStrategy, t Table) []string {
	typeName := strategy.TypeName(t.Name)
	ids := []string{typeName, typeName + "Table", typeName + "Columns"}
	if len(t.PrimaryKey) > 0 {
		ids = append(ids, typeName+"PrimaryKey")
	}
	return ids
}

// RenderSchema produces the package file of a schema
func RenderSchema(pkg, schema, version string) ([]byte, error) {
	return execute(schemaTemplate, map[string]string{
		"Package":       pkg,
		"Schema":        schema,
		"SchemaVersion": version,
	})
}

func execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.Name(), err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated source does not parse: %w", err)
	}
	return src, nil
}
