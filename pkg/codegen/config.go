package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the complete input of one generator run. It is plain data so it
// can cross a process boundary as YAML.
type Config struct {
	// Driver is the database/sql driver name
	Driver string `yaml:"driver"`

	// Introspector selects the schema reader, see RegisterIntrospector
	Introspector string `yaml:"introspector"`

	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Schemata []SchemaConfig `yaml:"schemata"`

	Strategy StrategyConfig `yaml:"strategy"`

	// SchemaVersion, when set, stamps generated files with the highest applied migration version
	SchemaVersion *SchemaVersionSource `yaml:"schema_version,omitempty"`

	// Includes and Excludes are regular expressions matched against the
	// full table name or schema.table. Excludes win.
	Includes string `yaml:"includes"`
	Excludes string `yaml:"excludes"`

	Target TargetConfig `yaml:"target"`
}

// SchemaConfig selects one input schema
type SchemaConfig struct {
	InputSchema string `yaml:"input_schema"`

	// OutputSchemaToDefault generates unqualified table names
	OutputSchemaToDefault bool `yaml:"output_schema_to_default"`
}

// StrategyConfig selects how schemas map to Go packages
type StrategyConfig struct {
	// SchemaToPackage renames schema packages, e.g. {"public": "core"}
	SchemaToPackage map[string]string `yaml:"schema_to_package,omitempty"`
}

// SchemaVersionSource names the migration history table
type SchemaVersionSource struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

// TargetConfig is where generated code goes
type TargetConfig struct {
	// Package is the base Go package name; schemas become sub packages
	Package   string `yaml:"package"`
	Directory string `yaml:"directory"`

	// Clean removes Directory/Package before writing
	Clean bool `yaml:"clean"`
}

// Validate checks required fields and compiles the filters
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if len(c.Schemata) == 0 {
		return fmt.Errorf("%w: at least one schema is required", ErrInvalidConfig)
	}
	for i, s := range c.Schemata {
		if s.InputSchema == "" {
			return fmt.Errorf("%w: schemata[%d].input_schema is required", ErrInvalidConfig, i)
		}
	}
	if c.Target.Package == "" {
		return fmt.Errorf("%w: target.package is required", ErrInvalidConfig)
	}
	if !packageName.MatchString(c.Target.Package) {
		return fmt.Errorf("%w: target.package %q is not a valid Go package name", ErrInvalidConfig, c.Target.Package)
	}
	if c.Target.Directory == "" {
		return fmt.Errorf("%w: target.directory is required", ErrInvalidConfig)
	}
	if c.SchemaVersion != nil && (c.SchemaVersion.Schema == "" || c.SchemaVersion.Table == "") {
		return fmt.Errorf("%w: schema_version needs schema and table", ErrInvalidConfig)
	}
	if _, err := c.filter(); err != nil {
		return err
	}
	return nil
}

var packageName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// LoadConfig reads a YAML generator configuration
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read generator config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// WriteConfig writes cfg as YAML, readable only by the owner since it holds credentials
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode generator config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
