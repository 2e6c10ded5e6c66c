// Package pipeline runs migrations and code generation against a disposable database.
//
// A Runner builds the container from config.Config, hands it to an
// environment.Orchestrator and, once the database is ready, drives the
// MigrationDriver and then the GenerationDriver with the same
// ConnectionParameters and HistoryTable. A migration failure skips
// generation; the container is removed either way.
package pipeline
