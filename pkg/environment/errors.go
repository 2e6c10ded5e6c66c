package environment

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration is returned when the environment cannot be set up from the given configuration
	ErrConfiguration = errors.New("invalid environment configuration")

	// ErrProvisioning is returned when the image cannot be pulled or the container cannot be created or started
	ErrProvisioning = errors.New("container provisioning failed")

	// ErrReadinessTimeout is returned when the published port did not become reachable in time
	ErrReadinessTimeout = errors.New("database readiness timeout")

	// ErrInvalidState is returned when a lifecycle operation is called out of order
	ErrInvalidState = errors.New("invalid container state")
)

// Stage identifies the step of an orchestration run an error came from
type Stage string

const (
	StageConfigure  Stage = "configure"
	StageResolve    Stage = "resolve"
	StageProvision  Stage = "provision"
	StageReadiness  Stage = "readiness"
	StageAction     Stage = "action"
	StageMigration  Stage = "migration"
	StageGeneration Stage = "generation"
)

// StageError wraps a fatal error with the stage it happened in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or "" if err carries none
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// TimeoutError reports a port that never accepted a connection
type TimeoutError struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("database is not available under %s:%d after %s", e.Host, e.Port, e.Timeout)
}

// Is makes TimeoutError match ErrReadinessTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrReadinessTimeout
}
