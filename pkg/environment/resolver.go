package environment

import (
	"fmt"
	"net/url"
)

// LocalHost is returned for daemons reached over a local socket or pipe
const LocalHost = "localhost"

// HostResolver decides which hostname reaches a port published by the container runtime
type HostResolver struct {
	// Override short-circuits resolution when non-empty
	Override string
}

// Resolve parses the daemon endpoint and resolves the database host for it
func (r HostResolver) Resolve(daemonHost string) (string, error) {
	if r.Override != "" {
		return r.Override, nil
	}

	endpoint, err := url.Parse(daemonHost)
	if err != nil {
		return "", fmt.Errorf("%w: could not parse docker host %q: %v", ErrConfiguration, daemonHost, err)
	}
	return ResolveHost("", endpoint)
}

// ResolveHost returns override if set, otherwise the host implied by the runtime endpoint
func ResolveHost(override string, endpoint *url.URL) (string, error) {
	if override != "" {
		return override, nil
	}
	if endpoint == nil {
		return "", fmt.Errorf("%w: no docker host configured, please set database.host_override", ErrConfiguration)
	}

	switch endpoint.Scheme {
	case "http", "https", "tcp":
		if host := endpoint.Hostname(); host != "" {
			return host, nil
		}
	case "unix", "npipe":
		return LocalHost, nil
	}

	return "", fmt.Errorf("%w: could not resolve docker host for %s, please override it with database.host_override",
		ErrConfiguration, endpoint)
}
