package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/platinummonkey/dockgen/pkg/environment"
	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no --config flag is given and the file exists
const DefaultConfigFile = "dockgen.yaml"

// EnvPrefix prefixes every environment override, e.g. DOCKGEN_DATABASE_PASSWORD
const EnvPrefix = "DOCKGEN"

// keyDelimiter keeps dotted map keys such as "flyway.table" intact
const keyDelimiter = "::"

// Config holds all dockgen configuration
type Config struct {
	// Project names the default container
	Project string `yaml:"project" mapstructure:"project"`

	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Connection    ConnectionConfig    `yaml:"connection" mapstructure:"connection"`
	Image         ImageConfig         `yaml:"image" mapstructure:"image"`
	Migration     MigrationConfig     `yaml:"migration" mapstructure:"migration"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// DatabaseConfig describes the database inside the container
type DatabaseConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Name     string `yaml:"name" mapstructure:"name"`

	// HostOverride replaces the host derived from the Docker endpoint
	HostOverride string `yaml:"host_override" mapstructure:"host_override"`

	// Port is the port inside the container
	Port int `yaml:"port" mapstructure:"port"`

	// ExposedPort is the published host port, 0 picks a free one
	ExposedPort int `yaml:"exposed_port" mapstructure:"exposed_port"`
}

// ConnectionConfig describes how drivers reach the database
type ConnectionConfig struct {
	Scheme       string `yaml:"scheme" mapstructure:"scheme"`
	Driver       string `yaml:"driver" mapstructure:"driver"`
	Introspector string `yaml:"introspector" mapstructure:"introspector"`
	QueryParams  string `yaml:"query_params" mapstructure:"query_params"`
}

// ImageConfig describes the database container
type ImageConfig struct {
	Repository    string            `yaml:"repository" mapstructure:"repository"`
	Tag           string            `yaml:"tag" mapstructure:"tag"`
	EnvVars       map[string]string `yaml:"env_vars" mapstructure:"env_vars"`
	ContainerName string            `yaml:"container_name" mapstructure:"container_name"`

	// ReadinessProbeHost is the host the probe uses inside the container
	ReadinessProbeHost string `yaml:"readiness_probe_host" mapstructure:"readiness_probe_host"`

	// ReadinessProbe is a text/template over .Host and .Port run with sh -c
	ReadinessProbe string `yaml:"readiness_probe" mapstructure:"readiness_probe"`
}

// MigrationConfig configures the migration engine
type MigrationConfig struct {
	Locations  []string          `yaml:"locations" mapstructure:"locations"`
	Properties map[string]string `yaml:"properties" mapstructure:"properties"`
}

// GenerationConfig configures code generation
type GenerationConfig struct {
	Schemas               []string          `yaml:"schemas" mapstructure:"schemas"`
	BasePackage           string            `yaml:"base_package" mapstructure:"base_package"`
	OutputDir             string            `yaml:"output_dir" mapstructure:"output_dir"`
	SchemaToPackage       map[string]string `yaml:"schema_to_package" mapstructure:"schema_to_package"`
	OutputSchemaToDefault []string          `yaml:"output_schema_to_default" mapstructure:"output_schema_to_default"`
	ExcludeHistoryTable   bool              `yaml:"exclude_history_table" mapstructure:"exclude_history_table"`
	Includes              string            `yaml:"includes" mapstructure:"includes"`
	Excludes              string            `yaml:"excludes" mapstructure:"excludes"`

	// GeneratorCommand runs generation in a child process; empty runs in-process.
	// ["self"] re-executes dockgen.
	GeneratorCommand []string `yaml:"generator_command" mapstructure:"generator_command"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat      string `yaml:"log_format" mapstructure:"log_format"`
	MetricsPushURL string `yaml:"metrics_push_url" mapstructure:"metrics_push_url"`
	MetricsJob     string `yaml:"metrics_job" mapstructure:"metrics_job"`
	OTelEnabled    bool   `yaml:"otel_enabled" mapstructure:"otel_enabled"`
	OTelEndpoint   string `yaml:"otel_endpoint" mapstructure:"otel_endpoint"`
	OTelInsecure   bool   `yaml:"otel_insecure" mapstructure:"otel_insecure"`
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
}

// DefaultReadinessProbe waits for pg_isready inside the container
const DefaultReadinessProbe = "until pg_isready -h {{.Host}} -p {{.Port}}; do echo waiting for db; sleep 1; done;"

// NewViper returns a viper instance with dockgen defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()
	return v
}

func key(parts ...string) string {
	return strings.Join(parts, keyDelimiter)
}

func setDefaults(v *viper.Viper) {
	project := "dockgen"
	if wd, err := os.Getwd(); err == nil {
		project = filepath.Base(wd)
	}
	v.SetDefault("project", project)

	v.SetDefault(key("database", "username"), "postgres")
	v.SetDefault(key("database", "password"), "postgres")
	v.SetDefault(key("database", "name"), "postgres")
	v.SetDefault(key("database", "host_override"), "")
	v.SetDefault(key("database", "port"), 5432)
	v.SetDefault(key("database", "exposed_port"), 0)

	v.SetDefault(key("connection", "scheme"), "postgres")
	v.SetDefault(key("connection", "driver"), "postgres")
	v.SetDefault(key("connection", "introspector"), "postgres")
	v.SetDefault(key("connection", "query_params"), "?sslmode=disable")

	v.SetDefault(key("image", "repository"), "postgres")
	v.SetDefault(key("image", "tag"), "11.2-alpine")
	v.SetDefault(key("image", "container_name"), "dockgen-container-"+project)
	v.SetDefault(key("image", "readiness_probe_host"), "127.0.0.1")
	v.SetDefault(key("image", "readiness_probe"), DefaultReadinessProbe)

	v.SetDefault(key("migration", "locations"), []string{"db/migration"})

	v.SetDefault(key("generation", "schemas"), []string{"public"})
	v.SetDefault(key("generation", "base_package"), "generated")
	v.SetDefault(key("generation", "output_dir"), "generated-dockgen")
	v.SetDefault(key("generation", "exclude_history_table"), false)
	v.SetDefault(key("generation", "includes"), ".*")
	v.SetDefault(key("generation", "excludes"), "")

	v.SetDefault(key("observability", "log_level"), "info")
	v.SetDefault(key("observability", "log_format"), observability.FormatText)
	v.SetDefault(key("observability", "metrics_push_url"), "")
	v.SetDefault(key("observability", "metrics_job"), "dockgen")
	v.SetDefault(key("observability", "otel_enabled"), false)
	v.SetDefault(key("observability", "otel_endpoint"), "localhost:4317")
	v.SetDefault(key("observability", "otel_insecure"), true)
	v.SetDefault(key("observability", "service_name"), "dockgen")
}

// Load reads path (or DefaultConfigFile when present), applies DOCKGEN_*
// environment overrides and defaults, and validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if path != "" {
		if err := restoreKeyCase(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// restoreKeyCase re-reads the user maps from the file because viper lowercases
// keys, which breaks environment variable names and property names.
func restoreKeyCase(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw struct {
		Image struct {
			EnvVars map[string]string `yaml:"env_vars"`
		} `yaml:"image"`
		Migration struct {
			Properties map[string]string `yaml:"properties"`
		} `yaml:"migration"`
		Generation struct {
			SchemaToPackage map[string]string `yaml:"schema_to_package"`
		} `yaml:"generation"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if raw.Image.EnvVars != nil {
		cfg.Image.EnvVars = raw.Image.EnvVars
	}
	if raw.Migration.Properties != nil {
		cfg.Migration.Properties = raw.Migration.Properties
	}
	if raw.Generation.SchemaToPackage != nil {
		cfg.Generation.SchemaToPackage = raw.Generation.SchemaToPackage
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Username == "" {
		errs = append(errs, errors.New("database.username is required"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port %d is out of range", c.Database.Port))
	}
	if c.Database.ExposedPort < 0 || c.Database.ExposedPort > 65535 {
		errs = append(errs, fmt.Errorf("database.exposed_port %d is out of range", c.Database.ExposedPort))
	}
	if c.Connection.Scheme == "" {
		errs = append(errs, errors.New("connection.scheme is required"))
	}
	if c.Image.Repository == "" || c.Image.Tag == "" {
		errs = append(errs, errors.New("image.repository and image.tag are required"))
	}
	if c.Image.ReadinessProbe == "" {
		errs = append(errs, errors.New("image.readiness_probe is required"))
	} else if _, err := template.New("probe").Parse(c.Image.ReadinessProbe); err != nil {
		errs = append(errs, fmt.Errorf("image.readiness_probe is not a valid template: %w", err))
	}
	if len(c.Migration.Locations) == 0 {
		errs = append(errs, errors.New("migration.locations must not be empty"))
	}
	if len(c.Generation.Schemas) == 0 {
		errs = append(errs, errors.New("generation.schemas must not be empty"))
	}
	if c.Generation.BasePackage == "" {
		errs = append(errs, errors.New("generation.base_package is required"))
	}
	if c.Generation.OutputDir == "" {
		errs = append(errs, errors.New("generation.output_dir is required"))
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case observability.FormatText, observability.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("observability.log_format must be %s or %s", observability.FormatText, observability.FormatJSON))
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		errs = append(errs, errors.New("observability.otel_endpoint is required when OTel is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", environment.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ImageName is the full image reference
func (c *Config) ImageName() string {
	return c.Image.Repository + ":" + c.Image.Tag
}

// ContainerName returns the configured name, or a random one when it was set empty
func (c *Config) ContainerName() string {
	if c.Image.ContainerName != "" {
		return c.Image.ContainerName
	}
	return "dockgen-" + uuid.NewString()
}

// HostPort returns the published port, picking a free one when exposed_port is 0
func (c *Config) HostPort() (int, error) {
	if c.Database.ExposedPort != 0 {
		return c.Database.ExposedPort, nil
	}
	return environment.FreePort()
}

// EnvVars returns the container environment, defaulting to the postgres image variables
func (c *Config) EnvVars() map[string]string {
	if len(c.Image.EnvVars) > 0 {
		env := make(map[string]string, len(c.Image.EnvVars))
		for k, v := range c.Image.EnvVars {
			env[k] = v
		}
		return env
	}
	return map[string]string{
		"POSTGRES_USER":     c.Database.Username,
		"POSTGRES_PASSWORD": c.Database.Password,
		"POSTGRES_DB":       c.Database.Name,
	}
}

// ReadinessCommand renders the probe for the in-container host and port
func (c *Config) ReadinessCommand() ([]string, error) {
	tmpl, err := template.New("probe").Option("missingkey=error").Parse(c.Image.ReadinessProbe)
	if err != nil {
		return nil, fmt.Errorf("%w: readiness probe: %v", environment.ErrConfiguration, err)
	}

	var buf bytes.Buffer
	data := struct {
		Host string
		Port int
	}{Host: c.Image.ReadinessProbeHost, Port: c.Database.Port}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: readiness probe: %v", environment.ErrConfiguration, err)
	}
	return []string{"sh", "-c", buf.String()}, nil
}

// secretKey matches map keys whose values are masked by Redacted
var secretKey = regexp.MustCompile(`(?i)password|secret|token`)

const mask = "********"

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = mask
	}
	out.Image.EnvVars = redactMap(c.Image.EnvVars)
	out.Migration.Properties = redactMap(c.Migration.Properties)
	return &out
}

func redactMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if secretKey.MatchString(k) {
			v = mask
		}
		out[k] = v
	}
	return out
}

// YAML renders the configuration
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
