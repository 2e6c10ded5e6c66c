// Package docker implements environment.ContainerManager on the Docker Engine API.
//
// The Manager tracks one container through
// unstarted -> image-pulled -> created -> running -> ready-checked -> removed
// and rejects out-of-order calls with environment.ErrInvalidState. Removal is
// allowed from every state and never fails the caller.
//
//	m, err := docker.NewDockerManager(ctx, docker.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
// Engine isolates the Docker SDK so the Manager can be tested without a daemon.
// Pull credentials are read from ~/.docker/config.json via DockerConfigAuth.
package docker
