// Package config loads dockgen configuration with viper.
//
// # Sources
//
// Values are resolved in this order, first match wins:
//
//  1. DOCKGEN_<SECTION>_<KEY> environment variables
//  2. the YAML file given with --config, or ./dockgen.yaml when present
//  3. built-in defaults
//
// # Example
//
//	database:
//	  username: app
//	  password: secret
//	  name: app
//	  exposed_port: 0        # pick a free host port
//	image:
//	  repository: postgres
//	  tag: 15-alpine
//	migration:
//	  locations: [db/migration]
//	  properties:
//	    flyway.defaultSchema: app
//	generation:
//	  schemas: [app, audit]
//	  base_package: db
//	  schema_to_package: {app: core}
//	  exclude_history_table: true
//
// Map keys under env_vars, properties and schema_to_package keep their case.
package config
