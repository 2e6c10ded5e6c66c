package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed is returned when a migration cannot be applied
	ErrMigrationFailed = errors.New("migration failed")

	// ErrChecksumMismatch is returned when an applied script changed on disk
	ErrChecksumMismatch = errors.New("migration checksum mismatch")

	// ErrValidation is returned when applied and local migrations disagree
	ErrValidation = errors.New("migration validation failed")

	// ErrInvalidScript is returned for unparseable script names or duplicate versions
	ErrInvalidScript = errors.New("invalid migration script")
)

// ScriptError reports the script that failed to apply
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() []error {
	return []error{ErrMigrationFailed, e.Err}
}
