// Package contextkeys provides the context key definitions shared across dockgen.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithRunID(ctx, id)
//	id := contextkeys.GetRunID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RunIDKey contains the run identifier (UUID string)
	// Set by: environment.Orchestrator.Run, unless the caller already set one
	// Used by: stage logs, span attributes, generator and migration drivers
	// Type: string
	RunIDKey Key = "run_id"
)

// WithRunID adds the run identifier to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run identifier from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}
