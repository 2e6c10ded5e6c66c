// Package environment runs work against a disposable, containerized database.
//
// # Overview
//
// An orchestration run resolves the host that reaches ports published by the
// container runtime, removes any stale container with the target name, pulls
// the image, starts the container, waits until the database is reachable and
// then hands the resolved host to a caller supplied action. The container is
// removed afterwards on every exit path: success, error or panic.
//
//	orch := environment.NewOrchestrator(manager, environment.HostResolver{Override: cfg.HostOverride})
//	err := orch.Run(ctx, spec, func(ctx context.Context, host string) error {
//		return migrateAndGenerate(ctx, host)
//	})
//
// # Host Resolution
//
// Without an override the daemon endpoint decides the host: tcp, http and
// https endpoints yield their host component, unix sockets and named pipes
// yield "localhost". Other schemes are a configuration error.
//
// # Readiness
//
// ContainerManager.AwaitReady runs a probe inside the container and then
// polls the published port from the caller's network with WaitForPort.
// Both checks are required because a remote daemon's published port is not
// necessarily reachable when the service is ready inside the container.
//
// # Errors
//
// Fatal errors are *StageError values naming the failing stage (configure,
// resolve, provision, readiness, action, migration, generation). Container
// removal failures never surface; managers log them instead.
//
// # Concurrency
//
// Runs are strictly sequential. Two runs sharing a container name race on
// the pre-emptive removal and the last one wins; isolated runs need unique
// names and host ports.
package environment
