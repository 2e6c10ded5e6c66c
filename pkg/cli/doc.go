// Package cli implements the dockgen command line.
//
//	dockgen generate [--config dockgen.yaml] [--container-name name] [--host-override host]
//	dockgen migrate  [--config dockgen.yaml]
//	dockgen codegen  --config generator.yaml [--result result.yaml]
//	dockgen resolve-host
//	dockgen config [--show-secrets]
//
// generate and migrate provision a throwaway database container and remove it
// again on every exit path, including SIGINT and SIGTERM.
package cli
