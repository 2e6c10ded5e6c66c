package codegen

import "errors"

var (
	// ErrGenerationFailed is returned when code generation fails
	ErrGenerationFailed = errors.New("code generation failed")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrIntrospectorNotFound is returned when no introspector is registered under a name
	ErrIntrospectorNotFound = errors.New("introspector not found")
)
