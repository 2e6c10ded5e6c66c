package docker

import (
	"fmt"

	"github.com/cpuguy83/dockercfg"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/registry"
)

// RegistryAuthFunc returns the encoded X-Registry-Auth header for an image
// reference. An empty string pulls anonymously.
type RegistryAuthFunc func(imageRef string) (string, error)

// RegistryHost returns the registry domain of an image reference,
// "docker.io" for unqualified Docker Hub images.
func RegistryHost(imageRef string) (string, error) {
	named, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", imageRef, err)
	}
	return reference.Domain(named), nil
}

// DockerConfigAuth looks the image registry up in ~/.docker/config.json and
// its credential helpers.
func DockerConfigAuth(imageRef string) (string, error) {
	host, err := RegistryHost(imageRef)
	if err != nil {
		return "", err
	}

	server := dockercfg.ResolveRegistryHost(host)
	username, password, err := dockercfg.GetRegistryCredentials(server)
	if err != nil {
		return "", fmt.Errorf("no credentials for %s: %w", host, err)
	}

	return encodeAuth(server, username, password)
}

func encodeAuth(server, username, password string) (string, error) {
	if username == "" && password == "" {
		return "", nil
	}

	cfg := registry.AuthConfig{ServerAddress: server}
	if username == "" {
		// credential helpers hand out identity tokens without a user name
		cfg.IdentityToken = password
	} else {
		cfg.Username = username
		cfg.Password = password
	}
	return registry.EncodeAuthConfig(cfg)
}
