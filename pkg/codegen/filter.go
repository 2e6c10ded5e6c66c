package codegen

import (
	"fmt"
	"regexp"
)

// tableFilter applies the include and exclude expressions
type tableFilter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func compileAnchored(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(`^(?:` + expr + `)$`)
}

func (c *Config) filter() (*tableFilter, error) {
	include := c.Includes
	if include == "" {
		include = ".*"
	}

	inc, err := compileAnchored(include)
	if err != nil {
		return nil, fmt.Errorf("%w: includes: %v", ErrInvalidConfig, err)
	}
	exc, err := compileAnchored(c.Excludes)
	if err != nil {
		return nil, fmt.Errorf("%w: excludes: %v", ErrInvalidConfig, err)
	}
	return &tableFilter{include: inc, exclude: exc}, nil
}

func (f *tableFilter) matches(re *regexp.Regexp, schema, table string) bool {
	return re.MatchString(table) || re.MatchString(schema+"."+table)
}

// Accept reports whether schema.table is generated
func (f *tableFilter) Accept(schema, table string) bool {
	if f.exclude != nil && f.matches(f.exclude, schema, table) {
		return false
	}
	return f.matches(f.include, schema, table)
}

// AppendExclude adds name to an exclude expression
func AppendExclude(excludes, name string) string {
	quoted := regexp.QuoteMeta(name)
	if excludes == "" {
		return quoted
	}
	return excludes + "|" + quoted
}
