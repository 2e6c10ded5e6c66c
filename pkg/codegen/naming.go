package codegen

import (
	"path"
	"strings"
	"unicode"
)

// NamingStrategy maps database names to Go identifiers and packages
type NamingStrategy interface {
	// PackageName returns the package for schema below the base package
	PackageName(schema string) string
	TypeName(table string) string
	FieldName(column string) string
}

// DefaultStrategy puts every schema into a package named after it
type DefaultStrategy struct{}

func (DefaultStrategy) PackageName(schema string) string {
	return SanitizePackage(schema)
}

func (DefaultStrategy) TypeName(table string) string {
	return ToCamel(table)
}

func (DefaultStrategy) FieldName(column string) string {
	return ToCamel(column)
}

// SchemaPackageRenameStrategy renames schema packages through an explicit
// mapping and falls back to DefaultStrategy for unmapped schemas.
type SchemaPackageRenameStrategy struct {
	DefaultStrategy
	SchemaToPackage map[string]string
}

// NewSchemaPackageRenameStrategy copies mapping
func NewSchemaPackageRenameStrategy(mapping map[string]string) *SchemaPackageRenameStrategy {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &SchemaPackageRenameStrategy{SchemaToPackage: m}
}

func (s *SchemaPackageRenameStrategy) PackageName(schema string) string {
	if pkg, ok := s.SchemaToPackage[schema]; ok && pkg != "" {
		return SanitizePackage(pkg)
	}
	return s.DefaultStrategy.PackageName(schema)
}

// StrategyFor builds the strategy described by cfg
func StrategyFor(cfg StrategyConfig) NamingStrategy {
	if len(cfg.SchemaToPackage) == 0 {
		return DefaultStrategy{}
	}
	return NewSchemaPackageRenameStrategy(cfg.SchemaToPackage)
}

// PackagePath returns the directory of schema's package relative to the target directory
func PackagePath(strategy NamingStrategy, base string, schema SchemaConfig) string {
	if schema.OutputSchemaToDefault {
		return base
	}
	return path.Join(base, strategy.PackageName(schema.InputSchema))
}

var commonInitialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"uri":  "URI",
	"uuid": "UUID",
	"api":  "API",
	"http": "HTTP",
	"json": "JSON",
	"sql":  "SQL",
	"ip":   "IP",
}

// ToCamel converts snake_case or kebab-case to an exported Go identifier
func ToCamel(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, w := range words {
		if up, ok := commonInitialisms[strings.ToLower(w)]; ok {
			b.WriteString(up)
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}

	out := b.String()
	if out == "" {
		return "X"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// SanitizePackage lowercases name and drops characters not allowed in package names
func SanitizePackage(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" || unicode.IsDigit([]rune(out)[0]) {
		out = "p" + out
	}
	if isKeyword(out) {
		out += "_"
	}
	return out
}

func isKeyword(s string) bool {
	switch s {
	case "break", "case", "chan", "const", "continue", "default", "defer", "else",
		"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
		"map", "package", "range", "return", "select", "struct", "switch", "type", "var":
		return true
	}
	return false
}
