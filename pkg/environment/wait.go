package environment

import (
	"context"
	"net"
	"strconv"
	"time"
)

// PortPollInterval is the pause between two connection attempts
const PortPollInterval = 100 * time.Millisecond

// dialTimeout caps a single connection attempt so a blackholed host cannot stall the loop
const dialTimeout = time.Second

// WaitForPort blocks until host:port accepts a TCP connection or timeout elapses
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: dialTimeout}
	start := time.Now()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		if time.Since(start) > timeout {
			return &TimeoutError{Host: host, Port: port, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PortPollInterval):
		}
	}
}
