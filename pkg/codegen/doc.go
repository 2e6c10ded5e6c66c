// Package codegen generates Go row types from a live database schema.
//
// # Overview
//
// A SchemaGenerator connects to the database, reads every configured schema
// through a registered Introspector and writes one file per table plus a
// package file carrying the schema name and migration version:
//
//	generated/
//	    public/
//	        dockgen_schema.go
//	        users.go
//	        orders.go
//
// # Naming
//
// Schemas become sub packages of Target.Package. StrategyConfig.SchemaToPackage
// renames them; SchemaConfig.OutputSchemaToDefault writes a schema straight
// into the base package with unqualified table names.
//
// # Process Isolation
//
// CommandGenerator runs the same generation in a child process. The parent
// writes Config as YAML, the child ("dockgen codegen --config <file>")
// answers with a YAML Result.
//
// # Filtering
//
// Includes and Excludes are anchored regular expressions matched against
// "table" and "schema.table"; AppendExclude adds a literal name.
package codegen
