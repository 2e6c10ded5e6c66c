package migrate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Property keys understood by the engine, with or without the "flyway." prefix
const (
	PropDefaultSchema     = "defaultSchema"
	PropTable             = "table"
	PropValidateOnMigrate = "validateOnMigrate"
	PropInstalledBy       = "installedBy"
	PropPlaceholderPrefix = "placeholders."
)

const propertyPrefix = "flyway."

// options are the effective settings of one run
type options struct {
	defaultSchema     string
	table             string
	validateOnMigrate bool
	installedBy       string
	placeholders      map[string]string
}

// normalizeProperties strips the optional prefix from every key
func normalizeProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[strings.TrimPrefix(k, propertyPrefix)] = v
	}
	return out
}

// DefaultSchemaOf returns the schema holding the history table:
// the defaultSchema property, else the first schema, else "public".
func DefaultSchemaOf(props map[string]string, schemas []string) string {
	if s := normalizeProperties(props)[PropDefaultSchema]; s != "" {
		return s
	}
	if len(schemas) > 0 && schemas[0] != "" {
		return schemas[0]
	}
	return "public"
}

// TableOf returns the table property or DefaultTable
func TableOf(props map[string]string) string {
	if t := normalizeProperties(props)[PropTable]; t != "" {
		return t
	}
	return DefaultTable
}

func resolveOptions(cfg Config) (options, error) {
	props := normalizeProperties(cfg.Properties)

	opts := options{
		defaultSchema:     cfg.DefaultSchema,
		table:             cfg.Table,
		validateOnMigrate: true,
		installedBy:       props[PropInstalledBy],
		placeholders:      make(map[string]string),
	}
	if opts.defaultSchema == "" {
		opts.defaultSchema = DefaultSchemaOf(cfg.Properties, cfg.Schemas)
	}
	if opts.table == "" {
		opts.table = TableOf(cfg.Properties)
	}
	if opts.installedBy == "" {
		opts.installedBy = cfg.User
	}

	if v, ok := props[PropValidateOnMigrate]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return options{}, fmt.Errorf("invalid %s %q: %w", PropValidateOnMigrate, v, err)
		}
		opts.validateOnMigrate = b
	}

	for k, v := range props {
		if name, ok := strings.CutPrefix(k, PropPlaceholderPrefix); ok {
			opts.placeholders[name] = v
		}
	}
	opts.placeholders["flyway:defaultSchema"] = opts.defaultSchema
	opts.placeholders["flyway:user"] = cfg.User
	opts.placeholders["flyway:table"] = opts.table

	return opts, nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// replacePlaceholders substitutes ${name}; an unknown name is an error
func replacePlaceholders(sql string, placeholders map[string]string) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(sql, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := placeholders[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("no value provided for placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
