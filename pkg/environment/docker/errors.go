package docker

import "errors"

var (
	// ErrDockerNotAvailable is returned when the Docker daemon cannot be reached
	ErrDockerNotAvailable = errors.New("docker is not available")

	// ErrImagePullFailed is returned when image pull fails
	ErrImagePullFailed = errors.New("failed to pull docker image")

	// ErrContainerFailed is returned when the container cannot be created or started
	ErrContainerFailed = errors.New("container start failed")

	// ErrContainerNotFound is returned by an Engine removing a container that does not exist
	ErrContainerNotFound = errors.New("container not found")

	// ErrProbeFailed is returned when the readiness probe could not be executed
	ErrProbeFailed = errors.New("readiness probe failed")
)
