package observability

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/dockgen/pkg/async"
	"github.com/sirupsen/logrus"
)

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
// Cancelling a run this way still lets deferred container teardown finish.
func SignalContext(parent context.Context, log logrus.FieldLogger) (context.Context, context.CancelFunc) {
	log = OrDefault(log)
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	async.SafeGo(ctx, log, 0, "signal watcher", func(ctx context.Context) error {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal %s, cancelling run", sig)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	return ctx, cancel
}
